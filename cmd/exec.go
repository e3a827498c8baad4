package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shadowdev/shadowctl/internal/errors"
)

var execCmd = &cobra.Command{
	Use:   "exec <name> <command...>",
	Short: "Execute a command in an environment's workspace",
	Long: `Runs a shell command inside the environment, in the workspace
directory. The command's output and exit code are passed through
verbatim.

Example:
  shadow exec test-env "git clone https://github.com/acme/lib && cd lib && make test"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runExecCmd,
}

var execTimeout time.Duration

func init() {
	execCmd.Flags().DurationVar(&execTimeout, "timeout", 0,
		"Deadline for the command (default from config, e.g. 5m)")
	rootCmd.AddCommand(execCmd)
}

func runExecCmd(cmd *cobra.Command, args []string) error {
	name := args[0]
	command := strings.Join(args[1:], " ")

	m, err := getManager()
	if err != nil {
		return err
	}

	res, err := m.Exec(cmd.Context(), name, command, execTimeout)
	if err != nil {
		return err
	}

	fmt.Fprint(os.Stdout, res.Stdout)
	fmt.Fprint(os.Stderr, res.Stderr)
	if res.ExitCode != 0 {
		// Propagate the command's own exit code to the shell without
		// extra noise; the command already wrote its stderr.
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return errors.New(errors.CodeGeneralError, res.ExitCode,
			fmt.Sprintf("command exited %d", res.ExitCode))
	}
	return nil
}
