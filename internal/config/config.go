package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
	securejoin "github.com/cyphar/filepath-securejoin"
)

const (
	// DefaultImage is the container image expected to boot the embedded git
	// host on startup. Building it is out of scope; a missing image is an
	// image_not_found error at provisioning time.
	DefaultImage = "shadow-env:local"

	// ContainerPrefix is prepended to environment names to form container names.
	ContainerPrefix = "shadow-"

	configFileName = "config.toml"
)

// envNameRegex validates environment names.
// Names must start with a lowercase letter or digit, followed by lowercase
// letters, digits, underscores, or hyphens. Maximum length is 63 characters
// (common container name limit).
var envNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// ValidateEnvName checks if an environment name is valid.
func ValidateEnvName(name string) error {
	if name == "" {
		return fmt.Errorf("environment name cannot be empty")
	}

	if !envNameRegex.MatchString(name) {
		return fmt.Errorf("invalid environment name %q: must start with a lowercase letter or digit, contain only lowercase letters, digits, underscores, or hyphens, and be at most 63 characters", name)
	}

	return nil
}

// HostConfig is the host-side configuration, loaded from
// ~/.shadow/config.toml when present. Every field has a working default so
// the file is optional.
type HostConfig struct {
	// Image is the container image for new environments.
	Image string `toml:"image"`

	// Runtime forces a backend ("podman" or "docker"); empty means auto-detect.
	Runtime string `toml:"runtime"`

	// MemoryLimit is passed to the runtime's --memory flag.
	MemoryLimit string `toml:"memory_limit"`

	// PidsLimit bounds the process count inside each environment.
	PidsLimit int `toml:"pids_limit"`

	// SnapshotWorkers bounds concurrent snapshot capture during provisioning.
	SnapshotWorkers int `toml:"snapshot_workers"`

	// HostReadyTimeout bounds how long to wait for the embedded git host.
	HostReadyTimeout duration `toml:"host_ready_timeout"`

	// ExecTimeout is the default deadline for exec when the caller gives none.
	ExecTimeout duration `toml:"exec_timeout"`

	// StateDir overrides the default ~/.shadow state directory.
	StateDir string `toml:"state_dir"`
}

// duration lets TOML carry values like "90s" or "5m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// DefaultHostConfig returns the configuration used when no file exists.
func DefaultHostConfig() *HostConfig {
	return &HostConfig{
		Image:            DefaultImage,
		MemoryLimit:      "4g",
		PidsLimit:        256,
		SnapshotWorkers:  4,
		HostReadyTimeout: duration{60 * time.Second},
		ExecTimeout:      duration{5 * time.Minute},
	}
}

// Load reads the host configuration from stateDir/config.toml, applying
// defaults for anything unset. A missing file is not an error.
func Load(stateDir string) (*HostConfig, error) {
	cfg := DefaultHostConfig()

	path := filepath.Join(stateDir, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the HostConfig is usable.
func (c *HostConfig) Validate() error {
	if c.Image == "" {
		return fmt.Errorf("image cannot be empty")
	}
	if c.SnapshotWorkers < 1 {
		return fmt.Errorf("snapshot_workers must be at least 1")
	}
	if c.PidsLimit < 1 {
		return fmt.Errorf("pids_limit must be at least 1")
	}
	switch c.Runtime {
	case "", "podman", "docker":
	default:
		return fmt.Errorf("unknown runtime %q (want podman or docker)", c.Runtime)
	}
	return nil
}

// HostReadyTimeoutValue returns the readiness deadline as a time.Duration.
func (c *HostConfig) HostReadyTimeoutValue() time.Duration {
	return c.HostReadyTimeout.Duration
}

// ExecTimeoutValue returns the default exec deadline as a time.Duration.
func (c *HostConfig) ExecTimeoutValue() time.Duration {
	return c.ExecTimeout.Duration
}

// DefaultStateDir returns ~/.shadow, the root for environment state.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shadow"
	}
	return filepath.Join(home, ".shadow")
}

// Paths resolves the directory layout under the state dir.
type Paths struct {
	StateDir        string
	EnvironmentsDir string
}

// NewPaths builds the path layout for a state directory.
func NewPaths(stateDir string) *Paths {
	return &Paths{
		StateDir:        stateDir,
		EnvironmentsDir: filepath.Join(stateDir, "environments"),
	}
}

// EnvDir returns the directory for one environment, guaranteed to stay under
// the environments root even for hostile names.
func (p *Paths) EnvDir(name string) (string, error) {
	if err := ValidateEnvName(name); err != nil {
		return "", err
	}
	return securejoin.SecureJoin(p.EnvironmentsDir, name)
}
