// Package orchestrator assembles the engine: persistence, command queue,
// device registry, liveness monitor, event notifier and the HTTP API.
package orchestrator

import (
	"fmt"
	"os"

	"github.com/growhub-io/growhub/internal/orchestrator/core"
	"github.com/growhub-io/growhub/internal/orchestrator/feed"
	"github.com/growhub-io/growhub/internal/orchestrator/liveness"
	"github.com/growhub-io/growhub/internal/orchestrator/notifier"
	"github.com/growhub-io/growhub/internal/orchestrator/queue"
	"github.com/growhub-io/growhub/internal/orchestrator/registry"
	"github.com/growhub-io/growhub/internal/orchestrator/remediation"
	httpserver "github.com/growhub-io/growhub/internal/orchestrator/server/http"
	"github.com/growhub-io/growhub/internal/orchestrator/storage"
	"github.com/growhub-io/growhub/internal/orchestrator/store"
	"github.com/growhub-io/growhub/pkg/log"
	"github.com/growhub-io/growhub/pkg/mqtt"
	"github.com/growhub-io/growhub/pkg/mqtt/topic"
	genericoptions "github.com/growhub-io/growhub/pkg/options"
)

// Config carries the validated option groups the server is built from.
type Config struct {
	HTTPOptions    *genericoptions.HTTPOptions
	MqttOptions    *genericoptions.MqttOptions
	SqliteOptions  *genericoptions.SqliteOptions
	S3Options      *genericoptions.S3Options
	MonitorOptions *genericoptions.MonitorOptions
}

// NewOrchestratorServer builds every component and wires them together.
// Secondary adapters (store, archive, notifier) are constructed first, the
// core (queue, registry, monitor) on top of them, and the ingress servers
// last.
func (cfg *Config) NewOrchestratorServer() (*OrchestratorServer, error) {
	st, err := store.Open(cfg.SqliteOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	var archiver core.CommandArchiver
	var bucketCheck storage.Archiver
	if cfg.S3Options.Enabled {
		a, err := storage.NewMinIOArchiver(cfg.S3Options)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to init command archive: %w", err)
		}
		archiver = a
		bucketCheck = a
	} else {
		archiver = st.Archive()
	}

	mqttClient, err := initMQTTClient(cfg.MqttOptions)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to init mqtt client: %w", err)
	}
	topics := topic.NewBuilder(cfg.MqttOptions.TopicRoot)
	events := notifier.New(mqttClient, topics)

	q := queue.New(st.Audit(), archiver).WithDeliveryHook(events.MirrorCommand)
	reg := registry.New(st.Devices(), q, st.Audit())
	snaps := feed.NewStore()

	engine := remediation.New(remediation.Limits{
		TempCeiling:       cfg.MonitorOptions.TempCeiling,
		SoilMoistureFloor: cfg.MonitorOptions.SoilMoistureFloor,
		TankFloor:         cfg.MonitorOptions.TankFloor,
	})

	mon := liveness.New(liveness.Config{
		SweepInterval:      cfg.MonitorOptions.SweepInterval,
		OfflineThreshold:   cfg.MonitorOptions.OfflineThreshold,
		EmergencyThreshold: cfg.MonitorOptions.EmergencyThreshold,
		EscalationInterval: cfg.MonitorOptions.EscalationInterval,
		MaxEscalations:     cfg.MonitorOptions.MaxEscalations,
	}, reg, engine, snaps, events, st.Audit())

	httpSrv := httpserver.NewServer(cfg.HTTPOptions, reg, q, mon, snaps, st)

	return &OrchestratorServer{
		store:       st,
		mqttClient:  mqttClient,
		bucketCheck: bucketCheck,
		registry:    reg,
		monitor:     mon,
		httpServer:  httpSrv,
	}, nil
}

func initMQTTClient(opts *genericoptions.MqttOptions) (mqtt.Client, error) {
	cfg := opts.ToClientConfig()

	if cfg.ClientID == "" {
		hostname, _ := os.Hostname()
		cfg.ClientID = fmt.Sprintf("growhub-orchestrator-%s", hostname)
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "failed to new mqtt client")
		return nil, err
	}
	return client, nil
}
