// Package tui provides terminal user interface components for shadowctl
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shadowdev/shadowctl/internal/environment"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionShell
	ActionDestroy
	ActionQuit
)

// PickerResult holds the result of the picker
type PickerResult struct {
	Action      Action
	Environment *environment.ShadowEnvironment
}

// envItem implements list.Item for environment display
type envItem struct {
	env     *environment.ShadowEnvironment
	running bool
}

func (i envItem) Title() string {
	return i.env.Name
}

func (i envItem) Description() string {
	statusIcon := "○"
	switch {
	case i.env.Status == environment.StatusReady && i.running:
		statusIcon = "✓"
	case i.env.Status == environment.StatusInUse:
		statusIcon = "●"
	case !i.running:
		statusIcon = "⚠"
	}
	return fmt.Sprintf("%s %s | %d repos | created %s",
		statusIcon,
		i.env.Status,
		len(i.env.RepoSpecs),
		i.env.CreatedAt.Local().Format("2006-01-02 15:04"),
	)
}

func (i envItem) FilterValue() string {
	return i.env.Name
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

// Model is the bubbletea model for the environment picker
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
	width    int
	height   int
}

// NewPicker creates a new environment picker. running maps environment
// names to their container liveness.
func NewPicker(envs []*environment.ShadowEnvironment, running map[string]bool) Model {
	items := make([]list.Item, len(envs))
	for i, env := range envs {
		items[i] = envItem{env: env, running: running[env.Name]}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	l := list.New(items, delegate, 80, 20)
	l.Title = "Shadow Environments"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(envItem); ok {
				m.result = PickerResult{
					Action:      ActionShell,
					Environment: item.env,
				}
				m.quitting = true
				return m, tea.Quit
			}

		case "d":
			if item, ok := m.list.SelectedItem().(envItem); ok {
				m.result = PickerResult{
					Action:      ActionDestroy,
					Environment: item.env,
				}
				m.quitting = true
				return m, tea.Quit
			}

		case "q", "esc":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("[enter] Shell  [d] Destroy  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive environment picker
func RunPicker(envs []*environment.ShadowEnvironment, running map[string]bool) (PickerResult, error) {
	if len(envs) == 0 {
		return PickerResult{Action: ActionQuit}, nil
	}

	m := NewPicker(envs, running)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, fmt.Errorf("picker failed: %w", err)
	}

	if result, ok := finalModel.(Model); ok {
		return result.Result(), nil
	}
	return PickerResult{Action: ActionQuit}, nil
}
