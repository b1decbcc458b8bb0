package main

import (
	"fmt"
	"os"

	// Sets GOMAXPROCS to match the container CPU quota.
	_ "go.uber.org/automaxprocs"

	"github.com/growhub-io/growhub/cmd/growhub-orchestrator/app"
)

func main() {
	if err := app.NewApp().Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
