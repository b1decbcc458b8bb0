package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/growhub-io/growhub/internal/orchestrator/liveness"
	"github.com/growhub-io/growhub/internal/orchestrator/registry"
	httpserver "github.com/growhub-io/growhub/internal/orchestrator/server/http"
	"github.com/growhub-io/growhub/internal/orchestrator/storage"
	"github.com/growhub-io/growhub/internal/orchestrator/store"
	"github.com/growhub-io/growhub/pkg/log"
	"github.com/growhub-io/growhub/pkg/mqtt"
)

// OrchestratorServer owns the component lifecycles.
type OrchestratorServer struct {
	store       *store.Store
	mqttClient  mqtt.Client
	bucketCheck storage.Archiver

	registry   *registry.Registry
	monitor    *liveness.Monitor
	httpServer *httpserver.Server
}

// Run primes the device catalog, connects the broker, then serves until the
// context is cancelled.
func (s *OrchestratorServer) Run(ctx context.Context) error {
	log.Info("Starting GrowHub orchestrator...")

	if err := s.registry.Load(ctx); err != nil {
		return err
	}

	if s.bucketCheck != nil {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := s.bucketCheck.CheckBucket(checkCtx)
		cancel()
		if err != nil {
			return err
		}
	}

	if err := s.mqttClient.Start(ctx); err != nil {
		return err
	}
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err := s.mqttClient.AwaitConnection(connectCtx)
	cancel()
	if err != nil {
		// The broker is an observability sink, not a dependency of the
		// control path; keep serving and let the client reconnect.
		log.Error(err, "MQTT broker not reachable yet, continuing")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.httpServer.Start(ctx) })
	g.Go(func() error { return s.monitor.Start(ctx) })

	err = g.Wait()

	s.shutdown()
	return err
}

func (s *OrchestratorServer) shutdown() {
	log.Info("Shutting down orchestrator...")

	s.registry.Scheduler().Stop()

	disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	s.mqttClient.Disconnect(disconnectCtx)
	cancel()

	if err := s.store.Close(); err != nil {
		log.Error(err, "Failed to close store")
	}

	_ = log.Sync()
}
