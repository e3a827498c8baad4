package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shadowdev/shadowctl/internal/environment"
)

var diffCmd = &cobra.Command{
	Use:   "diff <name>",
	Short: "Show workspace changes since environment creation",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiff,
}

var diffPath string

func init() {
	diffCmd.Flags().StringVar(&diffPath, "path", "", "Limit the report to a workspace subtree")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	m, err := getManager()
	if err != nil {
		return err
	}

	changes, err := m.Diff(args[0], diffPath)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		logInfo("No changes")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, c := range changes {
		fmt.Fprintf(w, "%s\t%s\t%s\n", changeMarker(c.Type), c.Path, sizeColumn(c))
	}
	return w.Flush()
}

func changeMarker(t environment.ChangeType) string {
	switch t {
	case environment.ChangeAdded:
		return "A"
	case environment.ChangeModified:
		return "M"
	case environment.ChangeDeleted:
		return "D"
	}
	return "?"
}

func sizeColumn(c environment.ChangedFile) string {
	if c.Type == environment.ChangeDeleted {
		return ""
	}
	return fmt.Sprintf("%d bytes", c.Size)
}
