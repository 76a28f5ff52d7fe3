// Package middleware provides the gin middleware the host API runs behind:
// CORS, per-client and global rate limiting, and structured request logging.
package middleware
