// Package logging provides structured logging for the bridge.
//
// This package wraps zap logger with convenience functions for the logging
// patterns used throughout the bridge: session lifecycle, router dispatch,
// transport retries, and overload notifications.
//
// # Log Levels
//
//   - Debug: per-frame detail (decode results, pending-request bookkeeping)
//   - Info: normal operations (session accept/close, dispatch, broadcasts)
//   - Warn: non-fatal issues (rate-limit hits, dropped messages, retries)
//   - Error: port failures, codec/validator rejections
//
// # Configuration
//
// Initialize logging once at startup:
//
//	if err := logging.Initialize("info"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// If Initialize is never called, or is called with an empty level and
// BRIDGE_LOG_LEVEL is unset, logging is silent (a no-op logger) so that the
// packages here stay quiet when imported as a library.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use; the underlying zap
// logger handles synchronization.
package logging
