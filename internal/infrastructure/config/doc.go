// Package config provides 12-factor configuration management for the packager
// and its host process.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Server: Host HTTP settings and the artifact directory mounted at start-up
//   - Build: Size limit, extra ignore patterns, surface ports, multiplexing
//   - Loader: Staging directory, load concurrency and timeout
//   - Registry: Upgrade policy for re-mounting a package id
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting of the host API
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	builder := archive.NewBuilder(archive.OptionsFromConfig(cfg.Build), logger)
//
// Environment Variables:
//   - PORT, HOST, APKG_ARTIFACT_DIR
//   - APKG_MAX_SIZE_BYTES, APKG_IGNORE, APKG_OUTPUT_DIR, APKG_MULTIPLEX
//   - APKG_PORT_HTTP, APKG_PORT_RPC, APKG_PORT_UI
//   - APKG_STAGING_DIR, APKG_LOAD_CONCURRENCY, APKG_LOAD_TIMEOUT
//   - APKG_UPGRADE_POLICY
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
