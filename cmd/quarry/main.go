// Command quarry is the entry point for the quarry CLI.
package main

import (
	"fmt"
	"os"

	"github.com/clearwater-labs/quarry-cli/internal/adapters/driving/cli"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
