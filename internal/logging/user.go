package logging

import (
	"fmt"
	"io"
	"os"
)

// User-facing output, kept apart from the structured logging: these
// helpers are the CLI's voice on stdout/stderr, while slog output is
// operator-facing and goes wherever Setup pointed it.

var (
	userOut io.Writer = os.Stdout
	userErr io.Writer = os.Stderr
)

// SetUserWriters redirects user-facing output, for tests.
func SetUserWriters(out, err io.Writer) {
	if out != nil {
		userOut = out
	}
	if err != nil {
		userErr = err
	}
}

// ResetUserWriters restores user-facing output to stdout/stderr.
func ResetUserWriters() {
	userOut = os.Stdout
	userErr = os.Stderr
}

// UserInfo prints an info message to stdout.
func UserInfo(format string, args ...any) {
	fmt.Fprintf(userOut, "ℹ "+format+"\n", args...)
}

// UserSuccess prints a success message to stdout.
func UserSuccess(format string, args ...any) {
	fmt.Fprintf(userOut, "✓ "+format+"\n", args...)
}

// UserWarning prints a warning message to stderr.
func UserWarning(format string, args ...any) {
	fmt.Fprintf(userErr, "⚠ "+format+"\n", args...)
}

// UserError prints an error message to stderr.
func UserError(format string, args ...any) {
	fmt.Fprintf(userErr, "✗ "+format+"\n", args...)
}
