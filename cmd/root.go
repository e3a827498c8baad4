package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shadowdev/shadowctl/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "shadow",
	Short: "Ephemeral shadow environments for safe repository experiments",
	Long: `shadow provisions ephemeral, isolated execution environments seeded
with exact snapshots of local git repositories.

Each environment is a hardened container with:
  - An embedded git host serving the snapshotted repositories
  - Git URL rewriting so upstream URLs resolve to the snapshots
  - A writable workspace, diffable against its creation state`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
