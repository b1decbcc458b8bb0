package main

import (
	"fmt"
	"os"

	"github.com/growhub-io/growhub/cmd/growhub-cli/app"
)

func main() {
	if err := app.NewCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
