package runtime

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shadowdev/shadowctl/internal/errors"
)

// MockContainer tracks the state of a fake container.
type MockContainer struct {
	ID      string
	Image   string
	Running bool
	Opts    StartOptions
}

// MockCall records one Runtime method invocation for assertions.
type MockCall struct {
	Method string
	Name   string
	Detail string
}

// MockRuntime is a scriptable Runtime for tests.
type MockRuntime struct {
	mu sync.Mutex

	// Containers tracks fake container state by name.
	Containers map[string]*MockContainer

	// ExecResults maps a substring of the executed command to a canned
	// result. The longest matching pattern wins. Commands with no match
	// get a zero-exit empty result.
	ExecResults map[string]*ExecResult

	// Errors maps a method name ("Start", "Exec", "Stop", ...) to an
	// error that method should return.
	Errors map[string]error

	// MissingImages lists images EnsureImage should report as absent.
	MissingImages map[string]bool

	// Calls logs every method invocation in order.
	Calls []MockCall

	nextID int
}

// NewMockRuntime creates an empty MockRuntime.
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		Containers:    make(map[string]*MockContainer),
		ExecResults:   make(map[string]*ExecResult),
		Errors:        make(map[string]error),
		MissingImages: make(map[string]bool),
	}
}

func (m *MockRuntime) record(method, name, detail string) {
	m.Calls = append(m.Calls, MockCall{Method: method, Name: name, Detail: detail})
}

// ExecLines returns the command text of every Exec call, in order.
func (m *MockRuntime) ExecLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lines []string
	for _, c := range m.Calls {
		if c.Method == "Exec" {
			lines = append(lines, c.Detail)
		}
	}
	return lines
}

// Reset clears recorded calls and container state.
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Containers = make(map[string]*MockContainer)
	m.Calls = nil
	m.nextID = 0
}

func (m *MockRuntime) Name() string { return "mock" }

func (m *MockRuntime) Start(ctx context.Context, opts StartOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Start", opts.Name, opts.Image)
	if err := m.Errors["Start"]; err != nil {
		return "", err
	}
	m.nextID++
	id := fmt.Sprintf("mock-container-%04d", m.nextID)
	m.Containers[opts.Name] = &MockContainer{ID: id, Image: opts.Image, Running: true, Opts: opts}
	return id, nil
}

func (m *MockRuntime) Exec(ctx context.Context, name string, cmd Command) (*ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	line := cmd.Script
	if line == "" {
		line = strings.Join(cmd.Argv, " ")
	}
	m.record("Exec", name, line)
	if err := m.Errors["Exec"]; err != nil {
		return nil, err
	}
	var best string
	var result *ExecResult
	for pattern, res := range m.ExecResults {
		if strings.Contains(line, pattern) && len(pattern) > len(best) {
			best = pattern
			result = res
		}
	}
	if result == nil {
		return &ExecResult{ExitCode: 0}, nil
	}
	cp := *result
	return &cp, nil
}

func (m *MockRuntime) ExecInteractive(ctx context.Context, name string, argv []string, workDir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ExecInteractive", name, strings.Join(argv, " "))
	return m.Errors["ExecInteractive"]
}

func (m *MockRuntime) Stop(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Stop", name, "")
	if err := m.Errors["Stop"]; err != nil {
		return err
	}
	if c, ok := m.Containers[name]; ok {
		c.Running = false
	}
	return nil
}

func (m *MockRuntime) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Remove", name, "")
	if err := m.Errors["Remove"]; err != nil {
		return err
	}
	delete(m.Containers, name)
	return nil
}

func (m *MockRuntime) Exists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Exists", name, "")
	if err := m.Errors["Exists"]; err != nil {
		return false, err
	}
	_, ok := m.Containers[name]
	return ok, nil
}

func (m *MockRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("IsRunning", name, "")
	if err := m.Errors["IsRunning"]; err != nil {
		return false, err
	}
	c, ok := m.Containers[name]
	return ok && c.Running, nil
}

func (m *MockRuntime) Logs(ctx context.Context, name string, tail int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Logs", name, "")
	if err := m.Errors["Logs"]; err != nil {
		return "", err
	}
	return "mock container logs", nil
}

func (m *MockRuntime) EnsureImage(ctx context.Context, image string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("EnsureImage", "", image)
	if err := m.Errors["EnsureImage"]; err != nil {
		return err
	}
	if m.MissingImages[image] {
		return errors.ImageNotFound(image)
	}
	return nil
}

var _ Runtime = (*MockRuntime)(nil)
