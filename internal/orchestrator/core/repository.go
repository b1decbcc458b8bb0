package core

import (
	"context"

	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
)

// DeviceRepository is the persistence port for device and actuator records.
// The engine treats storage technology as an external collaborator; the
// bundled implementation is SQLite.
type DeviceRepository interface {
	// Get retrieves a device by ID, or ErrDeviceNotFound.
	Get(ctx context.Context, id string) (*model.Device, error)

	// List returns every known device.
	List(ctx context.Context) ([]*model.Device, error)

	// Create registers a newly provisioned device with its actuator set.
	Create(ctx context.Context, device *model.Device) error

	// UpdateHeartbeat persists the device's latest heartbeat fields.
	UpdateHeartbeat(ctx context.Context, device *model.Device) error

	// UpdateActuator persists one actuator's state and mode.
	UpdateActuator(ctx context.Context, deviceID string, actuator *model.Actuator) error
}

// AuditRecorder is the append-only audit log port. Retention and pruning are
// an external collaborator concern.
type AuditRecorder interface {
	Record(ctx context.Context, entry *model.AuditEntry) error
}

// CommandArchiver receives commands that reached a terminal status and were
// removed from the live queue.
type CommandArchiver interface {
	Archive(ctx context.Context, cmd *model.Command) error
}
