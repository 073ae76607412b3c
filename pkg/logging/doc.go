// Package logging provides structured logging utilities for invsync components.
//
// # Overview
//
// This package wraps the standard library slog package with project defaults
// so the CLI, the daemon, the refresher and the source client all emit the same
// JSON records. It supports environment-based level selection, module/version
// context injection, source location for debug logs and redaction of
// credentials.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: Detailed diagnostic information with source location
//   - INFO: General informational messages (default)
//   - WARN/WARNING: Warning messages, including skipped source records
//   - ERROR: Failed refresh cycles and server errors
//
// # Usage
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("invsyncd", version)
//	    slog.Info("refresh complete", "hosts", 42, "groups", 7)
//	}
//
// # Redaction
//
// Attributes named token, authorization, password, secret or api_token are
// replaced with [REDACTED] before they are written, including inside groups.
// The source API token is therefore never logged even when a caller passes it
// by mistake:
//
//	slog.Debug("request", "token", cfg.Token) // {"token":"[REDACTED]"}
//
// # Environment Configuration
//
//	LOG_LEVEL=debug invsync refresh --config inventory.yaml
//
// If LOG_LEVEL is not set, defaults to INFO level.
package logging
