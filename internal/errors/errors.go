package errors

import (
	"errors"
	"fmt"
)

// Exit codes for shadowctl
const (
	ExitSuccess            = 0
	ExitGeneralError       = 1
	ExitConfigError        = 2
	ExitSourceError        = 3
	ExitRuntimeUnavailable = 4
	ExitImageNotFound      = 5
	ExitCreateFailed       = 6
	ExitHostUnavailable    = 7
	ExitPushFailed         = 8
	ExitNotFound           = 9
	ExitExecTimeout        = 10
)

// Stable machine-readable codes surfaced alongside exit codes.
const (
	CodeConfigurationError = "configuration_error"
	CodeSourceError        = "source_error"
	CodeRuntimeUnavailable = "runtime_unavailable"
	CodeImageNotFound      = "image_not_found"
	CodeCreateFailed       = "create_failed"
	CodeHostUnavailable    = "host_unavailable"
	CodePushFailed         = "push_failed"
	CodeNotFound           = "not_found"
	CodeExecTimeout        = "exec_timeout"
	CodeDestroyError       = "destroy_error"
	CodeGeneralError       = "error"
)

// ShadowError is the base error type for shadowctl. Every error carries a
// stable string code, the exit code for the CLI, and enough context (the
// repository identity, when the failure is repository-specific) to identify
// what failed.
type ShadowError struct {
	Code     string
	ExitCode int
	Message  string
	Repo     string // org/name, when the failure is repository-specific
	Cause    error
}

func (e *ShadowError) Error() string {
	msg := e.Message
	if e.Repo != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Repo)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ShadowError) Unwrap() error {
	return e.Cause
}

// New creates a new ShadowError
func New(code string, exitCode int, message string) *ShadowError {
	return &ShadowError{
		Code:     code,
		ExitCode: exitCode,
		Message:  message,
	}
}

// Wrap wraps an existing error with a ShadowError
func Wrap(code string, exitCode int, message string, cause error) *ShadowError {
	return &ShadowError{
		Code:     code,
		ExitCode: exitCode,
		Message:  message,
		Cause:    cause,
	}
}

// Common error constructors

// ConfigurationError returns an error for bad input, before any I/O happened.
func ConfigurationError(message string) *ShadowError {
	return New(CodeConfigurationError, ExitConfigError, message)
}

// SourceError returns an error for a local path that is not a usable repository.
func SourceError(path string, cause error) *ShadowError {
	return Wrap(CodeSourceError, ExitSourceError, fmt.Sprintf("invalid source repository: %s", path), cause)
}

// RuntimeUnavailable returns an error when no container backend is usable.
func RuntimeUnavailable(cause error) *ShadowError {
	return Wrap(CodeRuntimeUnavailable, ExitRuntimeUnavailable, "no container runtime available", cause)
}

// ImageNotFound returns an error for a missing container image.
func ImageNotFound(image string) *ShadowError {
	return New(CodeImageNotFound, ExitImageNotFound, fmt.Sprintf("container image not found: %s", image))
}

// CreateFailed returns an error for a failed container start. The diagnostic
// output captured from the runtime goes in the message so the caller does not
// have to dig through container logs.
func CreateFailed(message string, cause error) *ShadowError {
	return Wrap(CodeCreateFailed, ExitCreateFailed, message, cause)
}

// HostUnavailable returns an error when the embedded git host never became ready.
func HostUnavailable(message string, cause error) *ShadowError {
	return Wrap(CodeHostUnavailable, ExitHostUnavailable, message, cause)
}

// PushFailed returns an error for a failed bundle publication, tagged with the
// repository identity.
func PushFailed(repo string, cause error) *ShadowError {
	return &ShadowError{
		Code:     CodePushFailed,
		ExitCode: ExitPushFailed,
		Message:  "failed to publish snapshot",
		Repo:     repo,
		Cause:    cause,
	}
}

// NotFound returns an error for an unknown environment or path.
func NotFound(what string) *ShadowError {
	return New(CodeNotFound, ExitNotFound, fmt.Sprintf("not found: %s", what))
}

// ExecTimeout returns an error for a command that exceeded its deadline.
func ExecTimeout(message string) *ShadowError {
	return New(CodeExecTimeout, ExitExecTimeout, message)
}

// DestroyError returns an error for partial cleanup. It maps to the general
// exit code; destroy is best-effort and callers should treat this as a warning.
func DestroyError(message string, cause error) *ShadowError {
	return Wrap(CodeDestroyError, ExitGeneralError, message, cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *ShadowError {
	return New(CodeGeneralError, ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var shadowErr *ShadowError
	if errors.As(err, &shadowErr) {
		return shadowErr.ExitCode
	}
	return ExitGeneralError
}

// GetCode extracts the stable code from an error, or CodeGeneralError.
func GetCode(err error) string {
	var shadowErr *ShadowError
	if errors.As(err, &shadowErr) {
		return shadowErr.Code
	}
	return CodeGeneralError
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code string) bool {
	var shadowErr *ShadowError
	if errors.As(err, &shadowErr) {
		return shadowErr.Code == code
	}
	return false
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
