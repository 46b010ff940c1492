// Command guardgen compiles type declarations into runtime validators.
package main

import (
	"errors"
	"os"

	"github.com/roach88/guardgen/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	// Usage errors (unknown flags, bad --format) are printed by cobra.
	os.Exit(cli.ExitCommandError)
}
