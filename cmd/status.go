package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show one environment's state and container health",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	name := args[0]

	m, err := getManager()
	if err != nil {
		return err
	}

	env, err := m.Get(name)
	if err != nil {
		return err
	}
	running, err := m.Health(cmd.Context(), name)
	if err != nil {
		return err
	}

	fmt.Printf("Name:       %s\n", env.Name)
	fmt.Printf("ID:         %s\n", env.ID)
	fmt.Printf("Status:     %s\n", env.Status)
	fmt.Printf("Container:  %s (%s)\n", env.ContainerName, healthWord(running))
	fmt.Printf("Image:      %s\n", env.Image)
	fmt.Printf("Created:    %s\n", env.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Workspace:  %s\n", env.WorkspaceDir())
	fmt.Println("Repositories:")
	for _, spec := range env.RepoSpecs {
		commit := env.SnapshotCommits[spec.FullName()]
		if len(commit) > 12 {
			commit = commit[:12]
		}
		fmt.Printf("  %s  %s  (from %s)\n", spec.FullName(), commit, spec.LocalPath)
	}

	if !running {
		logWarning("Container is not running; destroy and recreate the environment")
	}
	return nil
}

func healthWord(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}
