// Package logging provides structured logging using uber/zap.
//
// This package offers two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Builders, loaders and the mount registry accept a *Logger and fall back to
// Nop() when none is given, so library callers are never forced to log.
//
// Example Usage:
//
//	logger := logging.NewDefault().Component("builder")
//	logger.Info("Artifact written", zap.String("path", art.Path))
//	logger.Warn("Advisory", zap.String("code", adv.Code))
package logging
