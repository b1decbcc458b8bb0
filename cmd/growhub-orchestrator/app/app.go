package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/growhub-io/growhub/cmd/growhub-orchestrator/app/options"
	"github.com/growhub-io/growhub/pkg/app"
)

const (
	commandName = "growhub-orchestrator"
	commandDesc = `The GrowHub orchestrator is the control plane for greenhouse field
devices. It tracks each device's actuator states, queues actuator commands
for delivery on the device's next poll, watches heartbeat liveness, and
applies failsafe remediation when a device stays silent too long.`
)

// NewApp builds the orchestrator application.
func NewApp() *app.App {
	opts := options.NewOrchestratorOptions()
	return app.NewApp(
		commandName,
		"Launch the GrowHub device orchestrator",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithConfigWatch(),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.OrchestratorOptions) app.RunFunc {
	return func() error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewOrchestratorServer()
		if err != nil {
			return fmt.Errorf("failed to create orchestrator server: %w", err)
		}

		return server.Run(ctx)
	}
}
