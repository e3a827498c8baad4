package system

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// MockExecutor implements CommandExecutor for testing.
type MockExecutor struct {
	mu sync.Mutex

	// Commands records all executed commands for verification.
	Commands []MockCommand

	// Responses maps command patterns to responses. A command matches a
	// pattern when the pattern is a substring of the full command line
	// ("name arg1 arg2 ..."). Longer patterns win over shorter ones so a
	// response for "git bundle create" beats one for "git".
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching response is found.
	DefaultResponse MockResponse

	// MissingBinaries contains names for which LookPath fails.
	MissingBinaries map[string]bool

	// InteractiveErr is returned by RunInteractive if set.
	InteractiveErr error

	// ReplaceProcessErr is returned by ReplaceProcess if set.
	ReplaceProcessErr error
}

// MockCommand records an executed command.
type MockCommand struct {
	Name  string
	Args  []string
	Stdin string
}

// Line returns the full command line for matching and assertions.
func (c MockCommand) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// MockResponse defines the response for a command.
type MockResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Commands:        make([]MockCommand, 0),
		Responses:       make(map[string]MockResponse),
		MissingBinaries: make(map[string]bool),
	}
}

// AddResponse adds a response for a command-line substring pattern.
func (m *MockExecutor) AddResponse(pattern string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[pattern] = resp
}

func (m *MockExecutor) match(line string) MockResponse {
	best := ""
	for pattern := range m.Responses {
		if strings.Contains(line, pattern) && len(pattern) > len(best) {
			best = pattern
		}
	}
	if best == "" {
		return m.DefaultResponse
	}
	return m.Responses[best]
}

func (m *MockExecutor) record(cmd MockCommand) MockResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = append(m.Commands, cmd)
	return m.match(cmd.Line())
}

func (m *MockExecutor) Run(ctx context.Context, name string, args ...string) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := m.record(MockCommand{Name: name, Args: args})
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &RunResult{ExitCode: resp.ExitCode, Stdout: []byte(resp.Stdout), Stderr: []byte(resp.Stderr)}, nil
}

func (m *MockExecutor) RunWithStdin(ctx context.Context, stdin string, name string, args ...string) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := m.record(MockCommand{Name: name, Args: args, Stdin: stdin})
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &RunResult{ExitCode: resp.ExitCode, Stdout: []byte(resp.Stdout), Stderr: []byte(resp.Stderr)}, nil
}

func (m *MockExecutor) RunInteractive(ctx context.Context, name string, args ...string) error {
	m.record(MockCommand{Name: name, Args: args})
	return m.InteractiveErr
}

func (m *MockExecutor) ReplaceProcess(name string, args ...string) error {
	m.record(MockCommand{Name: name, Args: args})
	if m.ReplaceProcessErr != nil {
		return m.ReplaceProcessErr
	}
	// In tests we cannot actually replace the process.
	return errors.New("mock: ReplaceProcess called (would exec in real implementation)")
}

func (m *MockExecutor) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MissingBinaries[name] {
		return "", errors.New("executable file not found in $PATH: " + name)
	}
	return "/usr/bin/" + name, nil
}

// LastCommand returns the most recently executed command.
func (m *MockExecutor) LastCommand() (MockCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return MockCommand{}, false
	}
	return m.Commands[len(m.Commands)-1], true
}

// CommandLines returns every recorded command line in order.
func (m *MockExecutor) CommandLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := make([]string, len(m.Commands))
	for i, c := range m.Commands {
		lines[i] = c.Line()
	}
	return lines
}

// Reset clears all recorded commands.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = make([]MockCommand, 0)
}
