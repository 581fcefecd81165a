// Package logging provides structured logging for zgxctl.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the toolkit. CLI commands are silent by default;
// set ZGXCTL_LOG_LEVEL to "debug", "info", "warn" or "error" to enable output.
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Device discovered",
//	    zap.String("hostname", "zgx-ab12cd"),
//	    zap.String("address", "192.168.1.100"),
//	)
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
