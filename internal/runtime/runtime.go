// Package runtime defines the execution runtime adapter for shadowctl.
// This abstraction covers the container backends (podman, docker) and
// enables comprehensive testing through mocking.
package runtime

import (
	"context"
	"time"

	shellquote "github.com/kballard/go-shellquote"
)

// ExecResult holds the result of executing a command in a container
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited zero.
func (r *ExecResult) Success() bool {
	return r.ExitCode == 0
}

// Mount represents a bind mount into a container.
type Mount struct {
	// Source is the host path
	Source string

	// Target is the path inside the container
	Target string

	// ReadOnly makes the mount read-only
	ReadOnly bool
}

// StartOptions holds options for starting a container.
type StartOptions struct {
	Name        string
	Image       string
	Mounts      []Mount
	Env         map[string]string
	MemoryLimit string
	PidsLimit   int
}

// Command is a structured command descriptor. Commands are composed as
// argument lists and only serialized to a shell string at the backend
// boundary, so programmatic composition never has quoting bugs.
type Command struct {
	// Argv is the command and its arguments.
	Argv []string

	// Script, when non-empty, is run via "sh -c" instead of Argv. Use
	// Shell() to build one safely from argument lists.
	Script string

	// WorkDir is the working directory inside the container.
	WorkDir string

	// Env is extra environment for the command.
	Env map[string]string

	// Timeout bounds execution; zero means no additional deadline beyond
	// the caller's context.
	Timeout time.Duration
}

// Shell builds a Command that runs the given shell script.
func Shell(script string) Command {
	return Command{Script: script}
}

// Quote joins argv into a single safely-quoted shell word sequence.
func Quote(argv ...string) string {
	return shellquote.Join(argv...)
}

// Runtime is the interface that container backends must implement.
// All methods are safe for concurrent use.
type Runtime interface {
	// Name returns the backend identifier ("podman" or "docker")
	Name() string

	// Start creates and starts a container with security hardening applied
	// (all capabilities dropped, no new privileges, memory and pid limits)
	Start(ctx context.Context, opts StartOptions) (containerID string, err error)

	// Exec executes a command inside a running container
	Exec(ctx context.Context, name string, cmd Command) (*ExecResult, error)

	// ExecInteractive replaces the current process with an interactive
	// session inside the container (uses the exec syscall)
	ExecInteractive(ctx context.Context, name string, argv []string, workDir string) error

	// Stop stops a running container; stopping an already-gone container
	// is success, not an error
	Stop(ctx context.Context, name string) error

	// Remove force-removes a container; removing an already-gone container
	// is success, not an error
	Remove(ctx context.Context, name string) error

	// Exists checks if a container exists (running or stopped)
	Exists(ctx context.Context, name string) (bool, error)

	// IsRunning checks if a container is currently running
	IsRunning(ctx context.Context, name string) (bool, error)

	// Logs returns the last lines of a container's output for diagnostics
	Logs(ctx context.Context, name string, tail int) (string, error)

	// EnsureImage verifies the image exists locally
	EnsureImage(ctx context.Context, image string) error
}
