package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shadowdev/shadowctl/internal/errors"
	"github.com/shadowdev/shadowctl/internal/logging"
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new shadow environment",
	Long: `Creates an isolated environment seeded with snapshots of local
repositories. Each repository is captured exactly as it is on disk,
including uncommitted and untracked changes, published to the
environment's embedded git host, and made reachable through its
original upstream URL.

Example:
  shadow create test-env -r ~/src/lib:acme/lib -r ~/src/tool:acme/tool
  shadow exec test-env "git clone https://github.com/acme/lib"`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

var createRepos []string

func init() {
	createCmd.Flags().StringArrayVarP(&createRepos, "repo", "r", nil,
		"Local repository mapping <path>:<org>/<name> (repeatable)")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]

	if len(createRepos) == 0 {
		return errors.ConfigurationError("at least one --repo mapping is required")
	}
	specs, err := parseRepoSpecs(createRepos)
	if err != nil {
		return err
	}

	m, err := getManager()
	if err != nil {
		return err
	}

	logging.Debug("starting environment creation", "name", name, "repos", len(specs))
	logInfo("Creating environment %s with %d repositories...", name, len(specs))

	env, err := m.Create(cmd.Context(), name, specs)
	if err != nil {
		return err
	}

	logSuccess("Environment %s ready", name)
	for _, spec := range env.RepoSpecs {
		commit := env.SnapshotCommits[spec.FullName()]
		if len(commit) > 12 {
			commit = commit[:12]
		}
		logInfo("  %s -> %s", spec.FullName(), commit)
	}
	logInfo(`Run commands with: shadow exec %s "<command>"`, name)
	return nil
}
