package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/psantana5/waitgate/cmd/waitgate/cmd"
	"github.com/psantana5/waitgate/internal/launch"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var exitErr *launch.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
