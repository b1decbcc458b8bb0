package model

import "time"

// OfflineTracker is the ephemeral per-device record of an offline episode.
// One exists while and only while a device is offline; its absence is the
// canonical signal that the device is online. The liveness monitor owns the
// full lifecycle and nothing else reads or writes it.
type OfflineTracker struct {
	// OfflineSince is the last heartbeat before the device went quiet.
	OfflineSince time.Time `json:"offlineSince"`

	// EscalationsSent counts escalation notifications this episode.
	EscalationsSent int `json:"escalationsSent"`

	// EmergencyApplied marks that failsafe actions have been applied for
	// this episode. Once true it is never re-applied until recovery resets
	// the episode.
	EmergencyApplied bool `json:"emergencyApplied"`
}
