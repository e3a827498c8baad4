package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shadowdev/shadowctl/internal/environment"
)

func testEnv(name string, status environment.Status) *environment.ShadowEnvironment {
	return &environment.ShadowEnvironment{
		Name:      name,
		Status:    status,
		CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		RepoSpecs: []environment.RepoSpec{
			{Org: "acme", Name: "lib", LocalPath: "/src/lib"},
		},
	}
}

func TestEnvItemMethods(t *testing.T) {
	item := envItem{env: testEnv("demo", environment.StatusReady), running: true}

	t.Run("Title", func(t *testing.T) {
		if got := item.Title(); got != "demo" {
			t.Errorf("Title() = %q, want %q", got, "demo")
		}
	})

	t.Run("FilterValue", func(t *testing.T) {
		if got := item.FilterValue(); got != "demo" {
			t.Errorf("FilterValue() = %q, want %q", got, "demo")
		}
	})

	t.Run("Description", func(t *testing.T) {
		desc := item.Description()
		if !strings.Contains(desc, "✓") {
			t.Error("Description should contain the running status icon")
		}
		if !strings.Contains(desc, "ready") {
			t.Error("Description should contain the lifecycle status")
		}
		if !strings.Contains(desc, "1 repos") {
			t.Error("Description should contain the repo count")
		}
	})

	t.Run("Description stopped", func(t *testing.T) {
		stopped := envItem{env: testEnv("demo", environment.StatusReady), running: false}
		if !strings.Contains(stopped.Description(), "⚠") {
			t.Error("Description should warn about a stopped container")
		}
	})
}

func TestPickerSelection(t *testing.T) {
	envs := []*environment.ShadowEnvironment{
		testEnv("alpha", environment.StatusReady),
		testEnv("beta", environment.StatusReady),
	}
	running := map[string]bool{"alpha": true, "beta": true}

	t.Run("enter selects shell action", func(t *testing.T) {
		m := NewPicker(envs, running)
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		result := updated.(Model).Result()
		if result.Action != ActionShell {
			t.Errorf("Action = %v, want ActionShell", result.Action)
		}
		if result.Environment == nil || result.Environment.Name != "alpha" {
			t.Errorf("selected environment = %+v, want alpha", result.Environment)
		}
	})

	t.Run("d selects destroy action", func(t *testing.T) {
		m := NewPicker(envs, running)
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
		result := updated.(Model).Result()
		if result.Action != ActionDestroy {
			t.Errorf("Action = %v, want ActionDestroy", result.Action)
		}
	})

	t.Run("q quits", func(t *testing.T) {
		m := NewPicker(envs, running)
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		result := updated.(Model).Result()
		if result.Action != ActionQuit {
			t.Errorf("Action = %v, want ActionQuit", result.Action)
		}
	})
}

func TestRunPickerEmptyList(t *testing.T) {
	result, err := RunPicker(nil, nil)
	if err != nil {
		t.Fatalf("RunPicker: %v", err)
	}
	if result.Action != ActionQuit {
		t.Errorf("empty list should quit, got %v", result.Action)
	}
}

func TestPickerView(t *testing.T) {
	m := NewPicker([]*environment.ShadowEnvironment{testEnv("demo", environment.StatusReady)}, nil)
	view := m.View()
	if !strings.Contains(view, "demo") {
		t.Error("view should list the environment")
	}
	if !strings.Contains(view, "[enter] Shell") {
		t.Error("view should show the key help")
	}
}
