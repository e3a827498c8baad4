package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shadowdev/shadowctl/internal/environment"
)

var addSourceCmd = &cobra.Command{
	Use:   "add-source <name> <path>:<org>/<repo>",
	Short: "Add or refresh a repository in an existing environment",
	Long: `Snapshots a local repository and publishes it into a running
environment. Re-adding a repository that is already provisioned
re-snapshots it, picking up new local commits and uncommitted changes.`,
	Args: cobra.ExactArgs(2),
	RunE: runAddSource,
}

func init() {
	rootCmd.AddCommand(addSourceCmd)
}

func runAddSource(cmd *cobra.Command, args []string) error {
	name := args[0]

	spec, err := environment.ParseLocal(args[1])
	if err != nil {
		return err
	}

	m, err := getManager()
	if err != nil {
		return err
	}

	logInfo("Snapshotting %s...", spec.FullName())
	rec, err := m.AddSource(cmd.Context(), name, spec)
	if err != nil {
		return err
	}

	commit := rec.HeadCommit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if rec.HasUncommitted {
		logSuccess("Published %s at %s (includes uncommitted changes)", spec.FullName(), commit)
	} else {
		logSuccess("Published %s at %s", spec.FullName(), commit)
	}
	return nil
}
