package cmd

import (
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <name> <workspace-path> <host-path>",
	Short: "Copy a file out of an environment's workspace",
	Args:  cobra.ExactArgs(3),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	m, err := getManager()
	if err != nil {
		return err
	}

	n, err := m.ExtractFile(args[0], args[1], args[2])
	if err != nil {
		return err
	}
	logSuccess("Extracted %s (%d bytes)", args[2], n)
	return nil
}
