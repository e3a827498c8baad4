// Package logging provides logging utilities for shadowctl.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("creating environment", "name", name, "repos", len(specs))
//	logging.Warn("git host slow to start", "elapsed", elapsed)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Capturing snapshot of %s...", spec.FullName())
//	logging.UserSuccess("Environment %s ready", name)
//	logging.UserWarning("Partial cleanup: %v", err)
//	logging.UserError("Failed to create environment: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
