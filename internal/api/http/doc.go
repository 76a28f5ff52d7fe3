// Package http implements the host dispatch API.
//
// Routes:
//
//	GET    /health                 registry stats and open breakers
//	GET    /metrics                Prometheus exposition
//	GET    /mounts                 mounted package summaries
//	POST   /mounts                 mount an artifact from disk {"path", "hash"}
//	GET    /mounts/:id             one package with its bindings
//	DELETE /mounts/:id             unmount a package
//	GET    /exports                global export table
//	GET    /exports/:id            one binding
//	POST   /exports/:id/invoke     dispatch to the registered implementation
//	GET    /ui/:id/*filepath       static assets of a ui surface
//
// Packaging errors are answered with their kind, hint and subjects; see StatusOf
// for the status each kind maps to.
package http
