// Package main is the entry point for the agent package host.
//
// The host mounts built agent packages (.apkg artifacts) into an in-memory
// registry and serves them over HTTP:
//
//	.apkg + .apkg.index.json → verify → stage → bind exports → mount
//
// The server provides:
//   - Mount management (list, mount from disk, unmount)
//   - Export lookup and invocation of in-process implementations
//   - Static serving of ui surfaces
//   - Prometheus metrics, CORS and rate limiting
//
// Configuration:
//   - Environment variables (12-factor, see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Mount everything under ./artifacts
//	./server -port 8000 -artifacts ./artifacts
//
//	# Development mode (colored logs), allow reinstalling the mounted version
//	./server -dev -policy allow-reinstall
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown, every package is unmounted
package main
