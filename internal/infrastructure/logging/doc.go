// Package logging provides structured logging for the Gray Logic Zigbee
// gateway.
//
// This package wraps Go's standard log/slog package and adds size-based log
// file rotation through lumberjack.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Rotated log files for gateways without a journal
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "both"     # stdout, stderr, file, both
//	  file:
//	    path: "/var/log/graylogic/zigbee.log"
//	    max_size: 10     # megabytes
//	    max_backups: 5
//	    max_age: 30      # days
//	    compress: true
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	defer logger.Close()
//	logger.Info("starting service", "port", 8080)
//
// Never log secrets, tokens or passwords.
package logging
