package main

import (
	"os"

	"github.com/shadowdev/shadowctl/cmd"
	"github.com/shadowdev/shadowctl/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
