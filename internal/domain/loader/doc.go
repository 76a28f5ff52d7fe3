// Package loader turns verified artifacts into mounted packages.
//
// A load reads the sidecar index, extracts the archive into a fresh
// staging directory while re-checking every member digest, re-validates
// the embedded manifest and deploy.json, binds each export and finally
// registers the package. Any failure, including context cancellation,
// removes the staging directory before returning.
//
// Symbol exports are bound through a SymbolResolver: FileResolver finds
// the module file inside the package, StaticResolver attaches invokers
// the host registered, and ChainResolver merges both.
package loader
