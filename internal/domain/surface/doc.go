/*
Package surface assembles the runnable surfaces of an agent package.

A package may declare up to three surfaces: an rpc service, an http entry
and a static ui tree. Each declared surface is copied into the build
directory under dist/<kind>/ using the copy strategy registered for its
kind, and a deploy.json descriptor records which surfaces are exposed, the
port assigned to each and whether one process serves them all.

Usage:

	asm := surface.NewAssembler(surface.DefaultOptions(), logger)
	layout, err := asm.Assemble(ctx, projectDir, buildDir, m)
*/
package surface
