// Package notifier publishes orchestrator events to the MQTT broker for
// dashboards and alerting relays. Delivery is best-effort: the engine's
// state transitions never wait on the broker.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/growhub-io/growhub/internal/orchestrator/core"
	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
	"github.com/growhub-io/growhub/pkg/log"
	"github.com/growhub-io/growhub/pkg/mqtt"
	"github.com/growhub-io/growhub/pkg/mqtt/topic"
)

var _ core.EventNotifier = (*MqttNotifier)(nil)

// MqttNotifier publishes events on {root}/events/{type}/{deviceID} and
// mirrors command deliveries on {root}/commands/{deviceID}.
type MqttNotifier struct {
	client mqtt.Client
	topics *topic.Builder
	logger log.Logger
}

// New creates an MQTT-backed event notifier.
func New(client mqtt.Client, topics *topic.Builder) *MqttNotifier {
	return &MqttNotifier{
		client: client,
		topics: topics,
		logger: log.WithName("notifier"),
	}
}

// Notify publishes the event at QoS 1. Escalation and failsafe events are
// retained so a dashboard connecting late still sees the active condition.
func (n *MqttNotifier) Notify(ctx context.Context, event *model.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.Type, err)
	}

	retain := event.Type == model.EventEmergencyFailsafe || event.Type == model.EventDeviceOfflineEscalation

	t := n.topics.Event(string(event.Type), event.DeviceID)
	if err := n.client.Publish(ctx, t, 1, retain, payload); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	n.logger.Debug("Published event", "topic", t, "type", event.Type, "device", event.DeviceID)
	return nil
}

// MirrorCommand publishes a command snapshot on the device's observability
// feed. Failures are logged, not returned; the poll API owns delivery.
func (n *MqttNotifier) MirrorCommand(ctx context.Context, cmd *model.Command) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		n.logger.Error(err, "Failed to encode command for mirror", "command", cmd.ID)
		return
	}

	if err := n.client.Publish(ctx, n.topics.Command(cmd.DeviceID), 0, false, payload); err != nil {
		n.logger.Error(err, "Failed to mirror command", "command", cmd.ID, "device", cmd.DeviceID)
	}
}
