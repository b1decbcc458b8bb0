package registry

import (
	"github.com/growhub-io/growhub/internal/orchestrator/core"
	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
)

// StateChange reports the before/after values of an applied transition.
type StateChange struct {
	Previous string `json:"previous"`
	New      string `json:"new"`
}

// Transitions are computed as pure functions of the current actuator and the
// requested value; the registry applies the result and performs the side
// effects (audit entry, command) in a separate step. This keeps the rule set
// unit-testable without any storage or queue behind it.

func onOff(state bool) string {
	if state {
		return "ON"
	}
	return "OFF"
}

// stateTransition validates a desired-state change. changed is false when
// the desired state equals the current one (a no-op for the caller).
func stateTransition(a *model.Actuator, desired bool) (change StateChange, changed bool) {
	change = StateChange{Previous: onOff(a.State), New: onOff(desired)}
	return change, a.State != desired
}

// modeTransition validates a desired-mode change against the actuator's
// rules. changed is false for a same-mode no-op.
func modeTransition(a *model.Actuator, desired model.Mode) (change StateChange, changed bool, err error) {
	if !desired.Valid() {
		return StateChange{}, false, core.ErrInvalidMode
	}
	if !a.Kind.SupportsMode(desired) {
		return StateChange{}, false, core.ErrModeNotSupported
	}
	change = StateChange{Previous: string(a.Mode), New: string(desired)}
	return change, a.Mode != desired, nil
}

// commandPriority maps a trigger source to delivery priority: alert-driven
// changes preempt routine operator toggles.
func commandPriority(trig model.TriggeredBy) model.Priority {
	if trig == model.TriggeredByAlert {
		return model.PriorityCritical
	}
	return model.PriorityHigh
}
