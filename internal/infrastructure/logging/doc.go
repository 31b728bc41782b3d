// Package logging provides structured logging for the Velux binding service.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same handler, level and default fields.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("binding started", "items", 4)
//	logger.Error("gateway unreachable", "error", err)
//
// # Security
//
// Never log secrets, tokens or passwords. The Velux bridge configuration
// implements slog.LogValuer and masks its password, so it is safe to pass
// whole as a log attribute.
package logging
