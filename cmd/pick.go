package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shadowdev/shadowctl/internal/logging"
	"github.com/shadowdev/shadowctl/internal/tui"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Interactive environment picker",
	Long: `Opens an interactive TUI for selecting an environment.

Use arrow keys or j/k to navigate, / to filter.

Actions:
  Enter  - Open a shell in the selected environment
  d      - Destroy the selected environment
  q/Esc  - Quit`,
	RunE: runPick,
}

func init() {
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	m, err := getManager()
	if err != nil {
		return err
	}

	logging.Debug("picker mode started")

	envs := m.List()
	if len(envs) == 0 {
		logInfo("No environments found. Create one with: shadow create <name> -r <path>:<org>/<repo>")
		return nil
	}

	running := make(map[string]bool, len(envs))
	for _, env := range envs {
		up, err := m.Health(cmd.Context(), env.Name)
		if err != nil {
			logging.Debug("health check failed", "name", env.Name, "error", err)
			continue
		}
		running[env.Name] = up
	}

	result, err := tui.RunPicker(envs, running)
	if err != nil {
		return err
	}

	switch result.Action {
	case tui.ActionShell:
		return m.Shell(cmd.Context(), result.Environment.Name)
	case tui.ActionDestroy:
		if err := m.Destroy(cmd.Context(), result.Environment.Name); err != nil {
			return err
		}
		logSuccess("Environment %s destroyed", result.Environment.Name)
	}
	return nil
}
