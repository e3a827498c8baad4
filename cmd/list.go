package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all shadow environments",
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	m, err := getManager()
	if err != nil {
		return err
	}

	envs := m.List()
	if len(envs) == 0 {
		logInfo("No environments found. Create one with: shadow create <name> -r <path>:<org>/<repo>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tREPOS\tCONTAINER\tCREATED")
	fmt.Fprintln(w, "----\t------\t-----\t---------\t-------")

	for _, env := range envs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			env.Name, env.Status, len(env.RepoSpecs), env.ContainerName,
			env.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
