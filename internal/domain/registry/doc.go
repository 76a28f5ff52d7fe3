// Package registry tracks mounted agent packages and their exports.
//
// The registry is an explicit object owned by the host; there is no
// process-wide instance. Export ids are unique across every mounted
// package: a package whose public exports collide with ids owned by
// another package is rejected as a whole and nothing changes.
//
// Components:
//   - Registry: copy-on-write mount table with serialized writers
//   - MountedPackage: one loaded package and its bound exports
//   - Binding: an export resolved to a staged file or a host invoker
//
// Reads go through an immutable snapshot swapped atomically on every
// write, so lookups never block on a concurrent mount or unmount.
//
// Example Usage:
//
//	reg := registry.New(version.Strict, logger, metrics)
//	err := reg.Register(pkg)
//	b, ok := reg.Lookup("classify")
//	err = reg.Unregister("classifier")
package registry
