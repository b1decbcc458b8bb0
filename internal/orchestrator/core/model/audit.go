package model

import "time"

// TriggeredBy records what initiated a state transition.
type TriggeredBy string

const (
	TriggeredByManual     TriggeredBy = "manual"
	TriggeredByAutomation TriggeredBy = "automation"
	TriggeredBySchedule   TriggeredBy = "schedule"
	TriggeredByAlert      TriggeredBy = "alert"
)

// Valid reports whether t is a recognized trigger source.
func (t TriggeredBy) Valid() bool {
	switch t {
	case TriggeredByManual, TriggeredByAutomation, TriggeredBySchedule, TriggeredByAlert:
		return true
	}
	return false
}

// SystemActuator is the AuditEntry actuator value for transitions that are
// not tied to a single relay, such as the emergency failsafe marker.
const SystemActuator = "system"

// AuditEntry is an immutable record of one state transition. Entries are
// append-only; nothing in the engine mutates or deletes them.
type AuditEntry struct {
	DeviceID string `json:"deviceId"`

	// Actuator is the relay kind, or SystemActuator for device-level events.
	Actuator string `json:"actuator"`

	Previous string `json:"previousValue"`
	New      string `json:"newValue"`

	TriggeredBy TriggeredBy `json:"triggeredBy"`

	// ActorID identifies the operator for manual actions; empty otherwise.
	ActorID string `json:"actorId,omitempty"`

	Reason string `json:"reason,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
