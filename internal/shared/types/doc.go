// Package types provides shared data structures for the agent packager.
//
// This package defines the vocabulary every other component speaks, so the
// builder, loader, registry and host API agree on error kinds and on the
// contract a mounted export satisfies.
//
// Core Types:
//   - Error: Typed failure with a kind, offending subjects and a remediation hint
//   - Advisory: Non-blocking warning reported during build or validation
//   - Invoker: Single-method capability every bound export satisfies
//   - Request, Response: Payloads exchanged with an Invoker
//   - RegistryStats: Mount registry counters
//
// Example Usage:
//
//	if errors.Is(err, types.ErrConflict) {
//	    var perr *types.Error
//	    errors.As(err, &perr)
//	    fmt.Println(perr.Subjects)
//	}
package types
