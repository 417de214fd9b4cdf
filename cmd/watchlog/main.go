package main

import (
	"os"

	"github.com/runnerr0/watchlog/internal/cli"
)

var version = "dev"

func main() {
	// The parser prints errors itself.
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
