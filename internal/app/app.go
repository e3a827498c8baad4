// Package app provides the application context for shadowctl.
// It allows dependency injection for testing.
package app

import (
	"sync"

	"github.com/shadowdev/shadowctl/internal/config"
	"github.com/shadowdev/shadowctl/internal/errors"
	"github.com/shadowdev/shadowctl/internal/logging"
	"github.com/shadowdev/shadowctl/internal/manager"
	"github.com/shadowdev/shadowctl/internal/runtime"
)

// App holds the application dependencies
type App struct {
	// HostConfig is the loaded host configuration
	HostConfig *config.HostConfig

	// Runtime is the container runtime, nil when none was detected
	Runtime runtime.Runtime

	// runtimeErr records why detection failed
	runtimeErr error

	mu      sync.Mutex
	manager *manager.Manager
}

// Option is a function that configures the App
type Option func(*App)

// WithHostConfig sets a custom host config
func WithHostConfig(cfg *config.HostConfig) Option {
	return func(a *App) {
		a.HostConfig = cfg
	}
}

// WithRuntime sets a custom runtime
func WithRuntime(r runtime.Runtime) Option {
	return func(a *App) {
		a.Runtime = r
	}
}

// New creates a new App with the given options. If a runtime is not
// provided via WithRuntime, it is auto-detected; detection failure is
// recorded and surfaced when a command actually needs the runtime.
func New(opts ...Option) *App {
	app := &App{}

	for _, opt := range opts {
		opt(app)
	}

	if app.HostConfig == nil {
		cfg, err := config.Load(config.DefaultStateDir())
		if err != nil {
			logging.Debug("failed to load host config, using defaults", "error", err)
			cfg = config.DefaultHostConfig()
		}
		app.HostConfig = cfg
	}

	if app.Runtime == nil {
		rt, err := runtime.Detect(app.HostConfig.Runtime, nil)
		if err != nil {
			logging.Debug("no container runtime detected", "error", err)
			app.runtimeErr = err
		} else {
			app.Runtime = rt
		}
	}

	return app
}

// Manager returns the environment manager, constructing it on first use.
func (a *App) Manager() (*manager.Manager, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.manager != nil {
		return a.manager, nil
	}
	if a.Runtime == nil {
		if a.runtimeErr != nil {
			return nil, a.runtimeErr
		}
		return nil, errors.RuntimeUnavailable(nil)
	}

	m, err := manager.New(manager.Options{
		Config:  a.HostConfig,
		Runtime: a.Runtime,
	})
	if err != nil {
		return nil, err
	}
	a.manager = m
	return m, nil
}

// The default application instance is initialized lazily so that importing
// this package has no side effects.
var (
	defaultOnce sync.Once
	defaultApp  *App
)

// Get returns the default application instance.
func Get() *App {
	defaultOnce.Do(func() {
		defaultApp = New()
	})
	return defaultApp
}
