package main

import (
	"os"

	"github.com/canto-cli/canto/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
