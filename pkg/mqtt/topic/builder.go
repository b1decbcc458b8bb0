package topic

import (
	"fmt"
)

// Constants defining the standard topic segments. These act as the protocol
// contract between the orchestrator and every dashboard or relay consumer;
// changing them breaks existing subscribers.
const (
	// SuffixEvents carries lifecycle and alert events published by the
	// orchestrator (Cloud -> Consumers).
	// Structure: {root}/events/{eventType}/{deviceID}
	SuffixEvents = "events"

	// SuffixCommands mirrors command deliveries for observability
	// (Cloud -> Consumers). The authoritative delivery path remains the
	// HTTP poll API; this topic is a read-only feed.
	// Structure: {root}/commands/{deviceID}
	SuffixCommands = "commands"
)

// Builder encapsulates the construction of MQTT topic strings so topic
// layout decisions stay in one place.
type Builder struct {
	// root is the base namespace for all topics (e.g. "growhub/v1").
	root string
}

// NewBuilder creates a Builder with the specified root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

// Event returns the topic for publishing an event of the given type about a
// specific device. Direction: Cloud -> Consumers.
func (b *Builder) Event(eventType, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", b.root, SuffixEvents, eventType, deviceID)
}

// EventWildcard returns the filter matching every event for every device.
// Result: {root}/events/#
func (b *Builder) EventWildcard() string {
	return fmt.Sprintf("%s/%s/%s", b.root, SuffixEvents, MultiWildcard)
}

// Command returns the observability topic for a device's command feed.
func (b *Builder) Command(deviceID string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, SuffixCommands, deviceID)
}

// CommandWildcard returns the filter matching every device's command feed.
// Result: {root}/commands/+
func (b *Builder) CommandWildcard() string {
	return fmt.Sprintf("%s/%s/%s", b.root, SuffixCommands, Wildcard)
}
