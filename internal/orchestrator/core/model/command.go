package model

import "time"

// Priority orders command delivery. Higher ranks are delivered first.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// Rank maps a priority to its sort weight. Unknown priorities sink below Low
// rather than failing, so a malformed record cannot stall the queue.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// CommandStatus is the delivery lifecycle phase of a command.
type CommandStatus string

const (
	CommandStatusPending      CommandStatus = "Pending"
	CommandStatusSent         CommandStatus = "Sent"
	CommandStatusAcknowledged CommandStatus = "Acknowledged"
	CommandStatusFailed       CommandStatus = "Failed"
)

// Terminal reports whether the status permits no further transitions.
func (s CommandStatus) Terminal() bool {
	return s == CommandStatusAcknowledged || s == CommandStatusFailed
}

// DefaultMaxRetries is the redelivery budget for a command whose device
// reports execution failure.
const DefaultMaxRetries = 3

// Command is a queued instruction for a device to execute on its next poll.
type Command struct {
	// ID is unique and assigned at enqueue time.
	ID string `json:"id"`

	DeviceID string `json:"deviceId"`

	// Payload: the target actuator plus the desired state and/or mode.
	Kind         ActuatorKind `json:"actuatorKind"`
	DesiredState *bool        `json:"desiredState,omitempty"`
	DesiredMode  *Mode        `json:"desiredMode,omitempty"`

	Priority Priority      `json:"priority"`
	Status   CommandStatus `json:"status"`

	// Seq is a monotonically increasing sequence number used as the FIFO
	// tiebreak within a priority class.
	Seq uint64 `json:"seq"`

	CreatedAt      time.Time  `json:"createdAt"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`

	RetryCount int `json:"retryCount"`
	MaxRetries int `json:"maxRetries"`

	// Error carries the device-reported failure reason, if any.
	Error string `json:"error,omitempty"`
}
