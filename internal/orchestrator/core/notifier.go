package core

import (
	"context"

	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
)

// EventNotifier publishes orchestrator events to the real-time/dashboard
// layer. The bundled implementation is an MQTT publisher.
type EventNotifier interface {
	Notify(ctx context.Context, event *model.Event) error
}

// SensorFeed exposes the latest sensor snapshot per device, supplied by the
// sensor-ingestion collaborator. Read-only inside the engine.
type SensorFeed interface {
	Latest(deviceID string) (*model.SensorSnapshot, bool)
}
