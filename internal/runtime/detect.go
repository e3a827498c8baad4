package runtime

import (
	"fmt"

	"github.com/shadowdev/shadowctl/internal/errors"
	"github.com/shadowdev/shadowctl/internal/logging"
	"github.com/shadowdev/shadowctl/internal/system"
)

// Detect chooses the container backend. An explicit preference ("podman" or
// "docker") is honored when that binary exists; otherwise podman is preferred
// over docker because it runs rootless by default. Detection happens once at
// manager initialization, never per call.
func Detect(preference string, exec system.CommandExecutor) (Runtime, error) {
	if exec == nil {
		exec = system.DefaultExecutor()
	}

	if preference != "" {
		if _, err := exec.LookPath(preference); err != nil {
			return nil, errors.RuntimeUnavailable(
				fmt.Errorf("configured runtime %q not found in PATH", preference))
		}
		logging.Debug("using configured container runtime", "command", preference)
		return NewDockerRuntime(preference, exec), nil
	}

	// Prefer podman (rootless by default)
	if _, err := exec.LookPath("podman"); err == nil {
		logging.Debug("detected podman")
		return NewDockerRuntime("podman", exec), nil
	}

	if _, err := exec.LookPath("docker"); err == nil {
		logging.Debug("detected docker")
		return NewDockerRuntime("docker", exec), nil
	}

	return nil, errors.RuntimeUnavailable(
		fmt.Errorf("no supported container runtime found (tried: podman, docker)"))
}
