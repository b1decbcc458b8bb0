package model

import "time"

// EventType names a published orchestrator event.
type EventType string

const (
	EventDeviceOffline           EventType = "device_offline"
	EventDeviceOfflineEscalation EventType = "device_offline_escalation"
	EventEmergencyFailsafe       EventType = "emergency_failsafe"
	EventDeviceOnline            EventType = "device_online"
	EventCriticalAlert           EventType = "critical_alert"
)

// Severity grades an event for downstream consumers.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Event is a notification published to the real-time/dashboard layer.
type Event struct {
	Type      EventType `json:"type"`
	DeviceID  string    `json:"deviceId"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`

	// Fields carries event-specific extras, e.g. offline minutes or the
	// applied emergency actions.
	Fields map[string]any `json:"fields,omitempty"`
}
