package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shadowdev/shadowctl/internal/errors"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy [name]",
	Short: "Destroy shadow environments",
	Long: `Stops the environment's container and removes all of its host-side
state. Teardown is best-effort: resources that are already gone are
skipped, not errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDestroy,
}

var destroyAll bool

func init() {
	destroyCmd.Flags().BoolVar(&destroyAll, "all", false, "Destroy every environment")
	rootCmd.AddCommand(destroyCmd)
}

func runDestroy(cmd *cobra.Command, args []string) error {
	m, err := getManager()
	if err != nil {
		return err
	}

	if destroyAll {
		if len(args) > 0 {
			return errors.ConfigurationError("--all takes no environment name")
		}
		count := len(m.List())
		if count == 0 {
			logInfo("No environments to destroy")
			return nil
		}
		if err := m.DestroyAll(cmd.Context()); err != nil {
			return err
		}
		logSuccess("Destroyed %d environments", count)
		return nil
	}

	if len(args) != 1 {
		return errors.ConfigurationError("an environment name or --all is required")
	}
	if err := m.Destroy(cmd.Context(), args[0]); err != nil {
		return err
	}
	logSuccess("Environment %s destroyed", args[0])
	return nil
}
