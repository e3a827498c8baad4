package runtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shadowdev/shadowctl/internal/errors"
	"github.com/shadowdev/shadowctl/internal/logging"
	"github.com/shadowdev/shadowctl/internal/system"
)

// DockerRuntime drives a docker-CLI-compatible backend (docker or podman).
// Both speak the same command surface, so one implementation covers both.
type DockerRuntime struct {
	command string
	exec    system.CommandExecutor
}

// NewDockerRuntime creates a runtime backed by the given CLI command.
func NewDockerRuntime(command string, exec system.CommandExecutor) *DockerRuntime {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	return &DockerRuntime{command: command, exec: exec}
}

// Name returns the backend identifier.
func (d *DockerRuntime) Name() string {
	return d.command
}

// Start creates and starts a detached container. Every container gets the
// same hardening: all capabilities dropped, no-new-privileges, and memory
// and pid limits so a runaway workload cannot take the host down.
func (d *DockerRuntime) Start(ctx context.Context, opts StartOptions) (string, error) {
	args := []string{
		"run", "-d",
		"--name", opts.Name,
		"--cap-drop=ALL",
		"--security-opt=no-new-privileges",
	}
	if opts.MemoryLimit != "" {
		args = append(args, "--memory="+opts.MemoryLimit)
	}
	if opts.PidsLimit > 0 {
		args = append(args, "--pids-limit="+strconv.Itoa(opts.PidsLimit))
	}
	for _, m := range opts.Mounts {
		spec := m.Source + ":" + m.Target
		if m.ReadOnly {
			spec += ":ro"
		}
		args = append(args, "-v", spec)
	}
	for k, v := range opts.Env {
		args = append(args, "-e", k+"="+v)
	}
	args = append(args, opts.Image)

	logging.Debug("starting container", "runtime", d.command, "name", opts.Name, "image", opts.Image)
	res, err := d.exec.Run(ctx, d.command, args...)
	if err != nil {
		return "", errors.CreateFailed("container start failed", err)
	}
	if res.ExitCode != 0 {
		return "", errors.CreateFailed(
			fmt.Sprintf("container start failed: %s", strings.TrimSpace(string(res.Stderr))), nil)
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// Exec runs a command inside a running container and returns its separated
// output and exit code. A non-zero exit code is data, not an error; err is
// reserved for failures to reach the container at all.
func (d *DockerRuntime) Exec(ctx context.Context, name string, cmd Command) (*ExecResult, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	args := []string{"exec"}
	if cmd.WorkDir != "" {
		args = append(args, "-w", cmd.WorkDir)
	}
	for k, v := range cmd.Env {
		args = append(args, "-e", k+"="+v)
	}
	args = append(args, name)
	if cmd.Script != "" {
		args = append(args, "sh", "-c", cmd.Script)
	} else {
		args = append(args, cmd.Argv...)
	}

	res, err := d.exec.Run(ctx, d.command, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.ExecTimeout(fmt.Sprintf("command timed out after %s", cmd.Timeout))
		}
		return nil, fmt.Errorf("%s exec: %w", d.command, err)
	}
	if ctx.Err() == context.DeadlineExceeded {
		return nil, errors.ExecTimeout(fmt.Sprintf("command timed out after %s", cmd.Timeout))
	}
	return &ExecResult{
		ExitCode: res.ExitCode,
		Stdout:   string(res.Stdout),
		Stderr:   string(res.Stderr),
	}, nil
}

// ExecInteractive replaces the current process with an interactive shell
// session inside the container.
func (d *DockerRuntime) ExecInteractive(ctx context.Context, name string, argv []string, workDir string) error {
	path, err := d.exec.LookPath(d.command)
	if err != nil {
		return errors.RuntimeUnavailable(err)
	}
	args := []string{d.command, "exec", "-it"}
	if workDir != "" {
		args = append(args, "-w", workDir)
	}
	args = append(args, name)
	args = append(args, argv...)
	return d.exec.ReplaceProcess(path, args...)
}

// Stop stops a running container. Stopping a container that is already gone
// or already stopped is treated as success.
func (d *DockerRuntime) Stop(ctx context.Context, name string) error {
	res, err := d.exec.Run(ctx, d.command, "stop", "--time", "5", name)
	if err != nil {
		return fmt.Errorf("%s stop: %w", d.command, err)
	}
	if res.ExitCode != 0 && !isNotFound(res.Stderr) {
		return fmt.Errorf("%s stop %s: %s", d.command, name, strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

// Remove force-removes a container. Removing a container that does not
// exist is treated as success.
func (d *DockerRuntime) Remove(ctx context.Context, name string) error {
	res, err := d.exec.Run(ctx, d.command, "rm", "-f", name)
	if err != nil {
		return fmt.Errorf("%s rm: %w", d.command, err)
	}
	if res.ExitCode != 0 && !isNotFound(res.Stderr) {
		return fmt.Errorf("%s rm %s: %s", d.command, name, strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

// Exists checks whether a container exists, running or stopped.
func (d *DockerRuntime) Exists(ctx context.Context, name string) (bool, error) {
	res, err := d.exec.Run(ctx, d.command, "container", "inspect", "--format", "{{.Id}}", name)
	if err != nil {
		return false, fmt.Errorf("%s inspect: %w", d.command, err)
	}
	return res.ExitCode == 0, nil
}

// IsRunning checks whether a container is currently running.
func (d *DockerRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	res, err := d.exec.Run(ctx, d.command, "container", "inspect", "--format", "{{.State.Running}}", name)
	if err != nil {
		return false, fmt.Errorf("%s inspect: %w", d.command, err)
	}
	if res.ExitCode != 0 {
		return false, nil
	}
	return strings.TrimSpace(string(res.Stdout)) == "true", nil
}

// Logs returns the last tail lines of the container's output. Used for
// diagnostics when provisioning fails.
func (d *DockerRuntime) Logs(ctx context.Context, name string, tail int) (string, error) {
	res, err := d.exec.Run(ctx, d.command, "logs", "--tail", strconv.Itoa(tail), name)
	if err != nil {
		return "", fmt.Errorf("%s logs: %w", d.command, err)
	}
	// docker writes container logs to both streams
	return string(res.Stdout) + string(res.Stderr), nil
}

// EnsureImage verifies the image is available locally. Images are never
// pulled implicitly; a missing image is a configuration problem the user
// resolves by building or pulling it themselves.
func (d *DockerRuntime) EnsureImage(ctx context.Context, image string) error {
	res, err := d.exec.Run(ctx, d.command, "image", "inspect", "--format", "{{.Id}}", image)
	if err != nil {
		return fmt.Errorf("%s image inspect: %w", d.command, err)
	}
	if res.ExitCode != 0 {
		return errors.ImageNotFound(image)
	}
	return nil
}

func isNotFound(stderr []byte) bool {
	s := strings.ToLower(string(stderr))
	return strings.Contains(s, "no such container") ||
		strings.Contains(s, "no container with name") ||
		strings.Contains(s, "not found")
}

var _ Runtime = (*DockerRuntime)(nil)
