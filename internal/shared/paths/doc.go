// Package paths provides the canonical file names and directory layout used
// by the builder and the loader.
//
// # Artifact Layout
//
//	<output>/
//	  ├── {id}-{version}.apkg             (zip archive)
//	  └── {id}-{version}.apkg.index.json  (integrity index)
//
// # Archive Members
//
//	agent.yaml         (manifest, always first)
//	deploy.json        (deploy descriptor)
//	dist/http/...      (http entry file)
//	dist/rpc/...       (rpc service file)
//	dist/ui/...        (ui assets)
//	...                (project files, sorted)
//
// # Usage
//
//	name := paths.ArtifactName("classifier", "1.2.0")   // classifier-1.2.0.apkg
//	dst, err := paths.SafeJoin(stagingDir, member.Name) // rejects ../ escapes
package paths
