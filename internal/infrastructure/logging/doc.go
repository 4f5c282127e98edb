// Package logging provides structured logging for almue-core.
//
// It wraps log/slog so every component logs with the same default fields
// (service, version) and the same level filtering.
//
// Configuration comes from the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "file"     # stdout, stderr, file
//	  file:
//	    path: "/var/log/almue/almue.log"
//	    max_size: 10     # MB before rotation
//	    max_backups: 30
//	    max_age: 30      # days
//
// File output is rotated by lumberjack, so a long running controller on an
// SD card never fills the disk.
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	defer logger.Close()
//	logger.With("component", "scheduler").Info("trigger added", "job", key)
//
// Never log broker passwords or tokens.
package logging
