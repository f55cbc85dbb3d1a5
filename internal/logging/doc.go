// Package logging provides structured logging for robowifi.
//
// This package wraps a package-global zap logger with convenience functions.
// Logging is silent unless a level is given, so interactive output and the
// terminal UI are never interleaved with log lines.
//
// # Log Levels
//
//   - Debug: Request retries, request tracker transitions
//   - Info: Robot requests and their outcomes, state resets
//   - Warn: Non-fatal issues (rediscovery misses, history write failures)
//   - Error: Startup failures
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// The wizard sends logs to a file instead of the terminal:
//
//	logging.InitializeToFile("debug", "/tmp/robowifi.log")
//
// When no level is given, ROBOWIFI_LOG_LEVEL is consulted.
package logging
