package main

import (
	"os"

	"github.com/driftlock/ghostgate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
