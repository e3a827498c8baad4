// Package system provides abstractions for OS operations to enable testing.
package system

import "context"

// RunResult holds the outcome of a finished subprocess.
type RunResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// CommandExecutor abstracts command execution for testability. All of
// shadowctl's subprocess traffic (git, docker/podman) goes through this seam
// so tests can script responses without touching the host.
type CommandExecutor interface {
	// Run executes a command and returns its separated output and exit code.
	// A non-zero exit code is not an error; err is reserved for failures to
	// run the command at all (not found, context cancelled, killed).
	Run(ctx context.Context, name string, args ...string) (*RunResult, error)

	// RunWithStdin is Run with the given stdin contents.
	RunWithStdin(ctx context.Context, stdin string, name string, args ...string) (*RunResult, error)

	// RunInteractive runs a command with stdin/stdout/stderr connected to the terminal.
	RunInteractive(ctx context.Context, name string, args ...string) error

	// ReplaceProcess replaces the current process with the given command (exec syscall).
	ReplaceProcess(name string, args ...string) error

	// LookPath reports the absolute path of an executable, or an error.
	LookPath(name string) (string, error)
}

var defaultExecutor CommandExecutor = &osExecutor{}

// DefaultExecutor returns the default CommandExecutor implementation.
func DefaultExecutor() CommandExecutor {
	return defaultExecutor
}

// SetDefaultExecutor sets the default CommandExecutor (useful for testing).
func SetDefaultExecutor(exec CommandExecutor) {
	defaultExecutor = exec
}

// ResetDefaults restores the default OS implementation.
func ResetDefaults() {
	defaultExecutor = &osExecutor{}
}
