package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bwan3150/test-toolkit-studio/internal/cli"
)

func main() {
	root := cli.NewRootCmd()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, cli.ErrTestFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
