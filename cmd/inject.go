package cmd

import (
	"github.com/spf13/cobra"
)

var injectCmd = &cobra.Command{
	Use:   "inject <name> <host-path> <workspace-path>",
	Short: "Copy a host file into an environment's workspace",
	Args:  cobra.ExactArgs(3),
	RunE:  runInject,
}

func init() {
	rootCmd.AddCommand(injectCmd)
}

func runInject(cmd *cobra.Command, args []string) error {
	m, err := getManager()
	if err != nil {
		return err
	}

	if err := m.InjectFile(args[0], args[1], args[2]); err != nil {
		return err
	}
	logSuccess("Injected %s", args[2])
	return nil
}
