// Package errors provides typed errors with exit codes for shadowctl.
//
// # Error Types
//
// ShadowError is the base error type that pairs a stable machine-readable
// code with a CLI exit code:
//
//	type ShadowError struct {
//	    Code     string // stable code, e.g. "push_failed"
//	    ExitCode int    // process exit code
//	    Message  string // user-facing message
//	    Repo     string // org/name when repository-specific
//	    Cause    error  // wrapped error
//	}
//
// # Codes
//
// Stable codes cover the full provisioning lifecycle:
//
//	configuration_error  bad input, rejected before any I/O
//	source_error         local path is not a usable git repository
//	runtime_unavailable  no container backend found
//	image_not_found      container image missing
//	create_failed        container start failed
//	host_unavailable     embedded git host never became ready
//	push_failed          snapshot publication failed for one repository
//	not_found            unknown environment or path
//	exec_timeout         in-container command exceeded its deadline
//	destroy_error        best-effort cleanup was partial
//
// # Error Constructors
//
// Use the provided constructors for consistent error creation:
//
//	errors.ConfigurationError("duplicate repository acme/lib")
//	errors.PushFailed("acme/lib", err)
//	errors.NotFound("environment riffle")
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
