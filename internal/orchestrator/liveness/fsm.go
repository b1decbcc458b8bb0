package liveness

import (
	"context"

	"github.com/looplab/fsm"

	fsmutil "github.com/growhub-io/growhub/internal/pkg/util/fsm"
	"github.com/growhub-io/growhub/pkg/log"
)

// Per-device liveness states. A device leaves "online" only through the
// tracker-creation path and returns to it only through recovery, so state
// and tracker lifecycle always agree.
const (
	StateOnline            = "online"
	StateOfflineWarning    = "offline_warning"
	StateOfflineEscalating = "offline_escalating"
	StateOfflineEmergency  = "offline_emergency"

	EventHeartbeatLost    = "heartbeat_lost"
	EventEscalate         = "escalate"
	EventEmergency        = "emergency"
	EventHeartbeatResumed = "heartbeat_resumed"
)

// newLivenessFSM builds the per-device offline state machine. The monitor
// fires events; the machine constrains which transitions are legal so a
// bug in sweep ordering surfaces as a transition error instead of a
// double-applied side effect.
func newLivenessFSM(deviceID string, logger log.Logger) *fsm.FSM {
	events := fsm.Events{
		{Name: EventHeartbeatLost, Src: []string{StateOnline}, Dst: StateOfflineWarning},
		{Name: EventEscalate, Src: []string{StateOfflineWarning}, Dst: StateOfflineEscalating},
		{Name: EventEmergency, Src: []string{StateOfflineWarning, StateOfflineEscalating}, Dst: StateOfflineEmergency},
		{Name: EventHeartbeatResumed, Src: []string{StateOfflineWarning, StateOfflineEscalating, StateOfflineEmergency}, Dst: StateOnline},
	}

	callbacks := fsm.Callbacks{
		"enter_state": fsmutil.WrapEvent(func(ctx context.Context, e *fsm.Event) error {
			logger.Debug("Liveness transition", "device", deviceID, "from", e.Src, "to", e.Dst, "event", e.Event)
			return nil
		}),
	}

	return fsm.NewFSM(StateOnline, events, callbacks)
}
