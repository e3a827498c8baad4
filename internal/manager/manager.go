// Package manager owns the shadow environment lifecycle: provisioning,
// extension, execution, and teardown. It is the only writer of the
// environment registry and of on-disk environment state.
package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shadowdev/shadowctl/internal/config"
	"github.com/shadowdev/shadowctl/internal/environment"
	"github.com/shadowdev/shadowctl/internal/errors"
	"github.com/shadowdev/shadowctl/internal/githost"
	"github.com/shadowdev/shadowctl/internal/logging"
	"github.com/shadowdev/shadowctl/internal/rewrite"
	"github.com/shadowdev/shadowctl/internal/runtime"
	"github.com/shadowdev/shadowctl/internal/snapshot"
)

// rewriteConfigName is the gitconfig document written into each
// environment's snapshot directory and included from the container's
// global git configuration.
const rewriteConfigName = "gitconfig"

// HostClient is the slice of the git host client the manager needs.
// Satisfied by *githost.Client.
type HostClient interface {
	WaitReady(ctx context.Context, timeout time.Duration) error
	EnsureOrg(ctx context.Context, org string) error
	EnsureRepo(ctx context.Context, org, name string) error
	PushBundle(ctx context.Context, org, name, bundlePath string) error
}

// Options configures a Manager. Runtime is required; everything else has
// a working default.
type Options struct {
	Config      *config.HostConfig
	Runtime     runtime.Runtime
	Snapshotter snapshot.Snapshotter

	// HostFactory builds the git host client for a container. Tests
	// substitute fakes here.
	HostFactory func(rt runtime.Runtime, container string) HostClient
}

// Manager coordinates all environment operations. Construct one per
// process with New; there is no ambient singleton.
type Manager struct {
	cfg   *config.HostConfig
	paths *config.Paths
	rt    runtime.Runtime
	snap  snapshot.Snapshotter
	host  func(rt runtime.Runtime, container string) HostClient

	// registry of committed environments, guarded independently of the
	// per-name provisioning locks so List never blocks on provisioning.
	mu   sync.RWMutex
	envs map[string]*environment.ShadowEnvironment

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a Manager and loads previously provisioned environments
// from the state directory.
func New(opts Options) (*Manager, error) {
	if opts.Runtime == nil {
		return nil, errors.ConfigurationError("manager requires a container runtime")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultHostConfig()
	}
	stateDir := cfg.StateDir
	if stateDir == "" {
		stateDir = config.DefaultStateDir()
	}
	snap := opts.Snapshotter
	if snap == nil {
		snap = snapshot.NewBuilder(nil)
	}
	host := opts.HostFactory
	if host == nil {
		host = func(rt runtime.Runtime, container string) HostClient {
			return githost.NewClient(rt, container)
		}
	}

	m := &Manager{
		cfg:   cfg,
		paths: config.NewPaths(stateDir),
		rt:    opts.Runtime,
		snap:  snap,
		host:  host,
		envs:  make(map[string]*environment.ShadowEnvironment),
		locks: make(map[string]*sync.Mutex),
	}
	if err := m.loadExisting(); err != nil {
		return nil, err
	}
	return m, nil
}

// loadExisting restores the registry from environment directories written
// by earlier processes. Directories without readable metadata are skipped;
// they are leftovers of interrupted provisioning and get cleaned up by the
// next destroy or create with the same name.
func (m *Manager) loadExisting() error {
	entries, err := os.ReadDir(m.paths.EnvironmentsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read state directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		env, err := environment.LoadMetadata(filepath.Join(m.paths.EnvironmentsDir, e.Name()))
		if err != nil {
			return err
		}
		if env == nil || env.Status == environment.StatusDestroyed {
			continue
		}
		// A process can only die while a command was running; the
		// environment itself is still usable.
		if env.Status == environment.StatusInUse {
			env.Status = environment.StatusReady
		}
		m.envs[env.Name] = env
	}
	return nil
}

// nameLock returns the mutex serializing mutations for one environment name.
func (m *Manager) nameLock(name string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[name]
	if !ok {
		l = &sync.Mutex{}
		m.locks[name] = l
	}
	return l
}

// Create provisions a new environment: snapshots every repository,
// starts the container, waits for the embedded git host, publishes the
// bundles, and writes the URL rewrite configuration. All-or-nothing: any
// failure rolls back completely and the environment never becomes
// visible to List.
func (m *Manager) Create(ctx context.Context, name string, specs []environment.RepoSpec) (*environment.ShadowEnvironment, error) {
	if err := config.ValidateEnvName(name); err != nil {
		return nil, errors.ConfigurationError(err.Error())
	}
	if err := validateSpecs(specs); err != nil {
		return nil, err
	}

	lock := m.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := m.get(name); ok {
		return nil, errors.ConfigurationError(fmt.Sprintf("environment %q already exists", name))
	}

	if err := m.rt.EnsureImage(ctx, m.image()); err != nil {
		return nil, err
	}

	dir, err := m.paths.EnvDir(name)
	if err != nil {
		return nil, errors.ConfigurationError(err.Error())
	}
	env := &environment.ShadowEnvironment{
		ID:              uuid.NewString(),
		Name:            name,
		ContainerName:   config.ContainerPrefix + name,
		Image:           m.image(),
		Status:          environment.StatusProvisioning,
		SnapshotCommits: make(map[string]string),
		CreatedAt:       time.Now().UTC(),
		Dir:             dir,
	}
	for _, spec := range specs {
		env.SetSpec(spec)
	}

	if err := os.MkdirAll(env.WorkspaceDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create environment directory: %w", err)
	}
	if err := os.MkdirAll(env.SnapshotsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create environment directory: %w", err)
	}

	started := false
	fail := func(cause error) error {
		m.rollback(env, started)
		return cause
	}

	records, err := m.captureSnapshots(ctx, env, specs)
	if err != nil {
		return nil, fail(err)
	}
	for _, rec := range records {
		env.SnapshotCommits[rec.Spec.FullName()] = rec.HeadCommit
	}

	logging.Info("starting environment container", "name", name, "image", env.Image)
	containerID, err := m.rt.Start(ctx, runtime.StartOptions{
		Name:  env.ContainerName,
		Image: env.Image,
		Mounts: []runtime.Mount{
			{Source: env.SnapshotsDir(), Target: environment.SnapshotsMount, ReadOnly: true},
			{Source: env.WorkspaceDir(), Target: environment.WorkspaceMount},
		},
		MemoryLimit: m.cfg.MemoryLimit,
		PidsLimit:   m.cfg.PidsLimit,
	})
	if err != nil {
		return nil, fail(err)
	}
	started = true
	env.ContainerID = containerID

	host := m.host(m.rt, env.ContainerName)
	if err := host.WaitReady(ctx, m.cfg.HostReadyTimeoutValue()); err != nil {
		return nil, fail(m.withDiagnostics(ctx, env, err))
	}

	// Container-side mutations run serialized even though the snapshots
	// were captured in parallel.
	for _, rec := range records {
		if err := m.publish(ctx, host, rec); err != nil {
			return nil, fail(err)
		}
	}
	if err := m.writeRewriteConfig(ctx, env); err != nil {
		return nil, fail(err)
	}

	if err := env.ComputeBaseline(); err != nil {
		return nil, fail(fmt.Errorf("record workspace baseline: %w", err))
	}

	if err := env.Transition(environment.StatusReady); err != nil {
		return nil, fail(err)
	}
	if err := env.SaveMetadata(); err != nil {
		return nil, fail(fmt.Errorf("persist environment metadata: %w", err))
	}

	m.put(env)
	logging.Info("environment ready", "name", name, "repos", len(specs))
	return env, nil
}

// AddSource snapshots one repository and publishes it into an existing
// environment. Idempotent: re-adding an identity that is already
// provisioned re-snapshots and re-publishes it, picking up new local
// commits, without disturbing other repositories.
func (m *Manager) AddSource(ctx context.Context, name string, spec environment.RepoSpec) (*environment.SnapshotRecord, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	lock := m.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	env, ok := m.get(name)
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("environment %q", name))
	}
	if env.Status != environment.StatusReady {
		return nil, errors.ValidationError(fmt.Sprintf(
			"environment %q is %s, expected %s", name, env.Status, environment.StatusReady))
	}

	rec, err := m.snap.Snapshot(ctx, spec, m.bundlePath(env, spec))
	if err != nil {
		return nil, err
	}

	host := m.host(m.rt, env.ContainerName)
	if err := m.publish(ctx, host, rec); err != nil {
		return nil, err
	}

	env.SetSpec(spec)
	env.SnapshotCommits[spec.FullName()] = rec.HeadCommit
	if err := m.writeRewriteConfig(ctx, env); err != nil {
		return nil, err
	}
	if err := env.SaveMetadata(); err != nil {
		return nil, fmt.Errorf("persist environment metadata: %w", err)
	}
	logging.Info("added source", "name", name, "repo", spec.FullName(), "dirty", rec.HasUncommitted)
	return rec, nil
}

// Exec runs a shell command inside the environment's workspace. The
// result is surfaced verbatim: exit codes are data, never retried. The
// environment is marked in-use for the duration and returns to ready
// even when the command fails or is cancelled.
func (m *Manager) Exec(ctx context.Context, name, command string, timeout time.Duration) (*runtime.ExecResult, error) {
	env, ok := m.get(name)
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("environment %q", name))
	}
	if err := m.transition(env, environment.StatusInUse); err != nil {
		return nil, err
	}
	defer func() {
		if err := m.transition(env, environment.StatusReady); err != nil {
			logging.Warn("environment stuck in-use", "name", name, "error", err)
		}
	}()

	if timeout <= 0 {
		timeout = m.cfg.ExecTimeoutValue()
	}
	return m.rt.Exec(ctx, env.ContainerName, runtime.Command{
		Script:  command,
		WorkDir: environment.WorkspaceMount,
		Timeout: timeout,
	})
}

// Shell replaces the current process with an interactive shell in the
// environment's workspace.
func (m *Manager) Shell(ctx context.Context, name string) error {
	env, ok := m.get(name)
	if !ok {
		return errors.NotFound(fmt.Sprintf("environment %q", name))
	}
	return m.rt.ExecInteractive(ctx, env.ContainerName, []string{"/bin/bash"}, environment.WorkspaceMount)
}

// Diff reports workspace file changes since environment creation.
// Read-only; pathPrefix optionally narrows the report to a subtree.
func (m *Manager) Diff(name, pathPrefix string) ([]environment.ChangedFile, error) {
	env, ok := m.get(name)
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("environment %q", name))
	}
	return env.Diff(pathPrefix)
}

// ExtractFile copies one file out of the environment workspace.
func (m *Manager) ExtractFile(name, containerPath, hostPath string) (int64, error) {
	env, ok := m.get(name)
	if !ok {
		return 0, errors.NotFound(fmt.Sprintf("environment %q", name))
	}
	return env.Extract(containerPath, hostPath)
}

// InjectFile copies one host file into the environment workspace.
func (m *Manager) InjectFile(name, hostPath, containerPath string) error {
	env, ok := m.get(name)
	if !ok {
		return errors.NotFound(fmt.Sprintf("environment %q", name))
	}
	return env.Inject(hostPath, containerPath)
}

// Destroy tears an environment down: stops and removes the container,
// deletes host-side state, and drops the registry entry. Best-effort:
// partial cleanup of already-gone resources is logged, not fatal.
// Destroying an unknown or already-destroyed name returns NotFound.
func (m *Manager) Destroy(ctx context.Context, name string) error {
	lock := m.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	env, ok := m.get(name)
	if !ok {
		return errors.NotFound(fmt.Sprintf("environment %q", name))
	}

	if err := m.rt.Stop(ctx, env.ContainerName); err != nil {
		logging.Warn("stopping container failed", "name", name, "error", err)
	}
	if err := m.rt.Remove(ctx, env.ContainerName); err != nil {
		logging.Warn("removing container failed", "name", name, "error", err)
	}
	if err := os.RemoveAll(env.Dir); err != nil {
		logging.Warn("removing environment directory failed", "name", name, "error", err)
	}

	env.Status = environment.StatusDestroyed
	m.mu.Lock()
	delete(m.envs, name)
	m.mu.Unlock()
	logging.Info("environment destroyed", "name", name)
	return nil
}

// DestroyAll destroys every registered environment, continuing past
// individual failures. Returns the first error seen, if any.
func (m *Manager) DestroyAll(ctx context.Context) error {
	var first error
	for _, env := range m.List() {
		if err := m.Destroy(ctx, env.Name); err != nil {
			logging.Warn("destroy failed", "name", env.Name, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// List returns the committed environments, sorted by name. In-flight
// provisioning is never visible here.
func (m *Manager) List() []*environment.ShadowEnvironment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*environment.ShadowEnvironment, 0, len(m.envs))
	for _, env := range m.envs {
		out = append(out, env)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns one environment by name.
func (m *Manager) Get(name string) (*environment.ShadowEnvironment, error) {
	env, ok := m.get(name)
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("environment %q", name))
	}
	return env, nil
}

// Health reports whether the environment's container is running.
func (m *Manager) Health(ctx context.Context, name string) (bool, error) {
	env, ok := m.get(name)
	if !ok {
		return false, errors.NotFound(fmt.Sprintf("environment %q", name))
	}
	return m.rt.IsRunning(ctx, env.ContainerName)
}

func (m *Manager) get(name string) (*environment.ShadowEnvironment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	env, ok := m.envs[name]
	return env, ok
}

func (m *Manager) put(env *environment.ShadowEnvironment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.envs[env.Name] = env
}

func (m *Manager) transition(env *environment.ShadowEnvironment, next environment.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return env.Transition(next)
}

func (m *Manager) image() string {
	if m.cfg.Image != "" {
		return m.cfg.Image
	}
	return config.DefaultImage
}

// captureSnapshots runs snapshot capture for independent repositories
// concurrently, bounded by the configured worker limit.
func (m *Manager) captureSnapshots(ctx context.Context, env *environment.ShadowEnvironment, specs []environment.RepoSpec) ([]*environment.SnapshotRecord, error) {
	records := make([]*environment.SnapshotRecord, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	workers := m.cfg.SnapshotWorkers
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers)

	for i, spec := range specs {
		g.Go(func() error {
			rec, err := m.snap.Snapshot(gctx, spec, m.bundlePath(env, spec))
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (m *Manager) bundlePath(env *environment.ShadowEnvironment, spec environment.RepoSpec) string {
	return filepath.Join(env.SnapshotsDir(), spec.Org+"__"+spec.Name+".bundle")
}

// publish creates the org and repository on the embedded host and
// force-pushes the bundle's refs into it.
func (m *Manager) publish(ctx context.Context, host HostClient, rec *environment.SnapshotRecord) error {
	spec := rec.Spec
	if err := host.EnsureOrg(ctx, spec.Org); err != nil {
		return errors.PushFailed(spec.FullName(), err)
	}
	if err := host.EnsureRepo(ctx, spec.Org, spec.Name); err != nil {
		return errors.PushFailed(spec.FullName(), err)
	}
	bundleInContainer := environment.SnapshotsMount + "/" + filepath.Base(rec.BundlePath)
	return host.PushBundle(ctx, spec.Org, spec.Name, bundleInContainer)
}

// writeRewriteConfig renders the full rewrite gitconfig for the
// environment's current repository set, writes it into the snapshot
// directory (visible read-only in the container), and wires it into the
// container's global git configuration. The document is replaced whole
// each time, so repeated calls never accumulate duplicate rules.
func (m *Manager) writeRewriteConfig(ctx context.Context, env *environment.ShadowEnvironment) error {
	rules := rewrite.Generate(githost.CredentialURL, env.RepoSpecs)
	doc := rewrite.RenderGitConfig(rules)
	hostPath := filepath.Join(env.SnapshotsDir(), rewriteConfigName)
	if err := os.WriteFile(hostPath, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write rewrite configuration: %w", err)
	}

	include := environment.SnapshotsMount + "/" + rewriteConfigName
	res, err := m.rt.Exec(ctx, env.ContainerName, runtime.Command{
		Argv: []string{"git", "config", "--global", "include.path", include},
	})
	if err != nil {
		return fmt.Errorf("wire rewrite configuration: %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("wire rewrite configuration: %s", strings.TrimSpace(res.Stderr))
	}
	return nil
}

// withDiagnostics augments a provisioning failure with the tail of the
// container's logs, so the user sees why the embedded host never came up.
func (m *Manager) withDiagnostics(ctx context.Context, env *environment.ShadowEnvironment, cause error) error {
	logs, lerr := m.rt.Logs(ctx, env.ContainerName, 50)
	if lerr != nil || strings.TrimSpace(logs) == "" {
		return cause
	}
	return errors.CreateFailed(fmt.Sprintf("%v\ncontainer logs:\n%s", cause, strings.TrimSpace(logs)), cause)
}

// rollback disposes of everything a failed create touched. The
// environment was never added to the registry, so there is nothing to
// unpublish there.
func (m *Manager) rollback(env *environment.ShadowEnvironment, started bool) {
	// Use a fresh context: rollback must run even when the caller's
	// context is already cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if started {
		if err := m.rt.Stop(ctx, env.ContainerName); err != nil {
			logging.Warn("rollback: stopping container failed", "name", env.Name, "error", err)
		}
		if err := m.rt.Remove(ctx, env.ContainerName); err != nil {
			logging.Warn("rollback: removing container failed", "name", env.Name, "error", err)
		}
	}
	if err := os.RemoveAll(env.Dir); err != nil {
		logging.Warn("rollback: removing environment directory failed", "name", env.Name, "error", err)
	}
	env.Status = environment.StatusFailed
	logging.Info("provisioning rolled back", "name", env.Name)
}

func validateSpecs(specs []environment.RepoSpec) error {
	if len(specs) == 0 {
		return errors.ConfigurationError("at least one repository is required")
	}
	seen := make(map[string]bool)
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return err
		}
		if seen[spec.FullName()] {
			return errors.ConfigurationError(fmt.Sprintf(
				"duplicate repository %s in one request", spec.FullName()))
		}
		seen[spec.FullName()] = true
	}
	return nil
}
