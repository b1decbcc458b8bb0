// Package fsm carries small adapters around looplab/fsm.
package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning callback to the looplab signature,
// surfacing the error on the event so the caller sees the failed transition.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// Fire triggers event on m. A NoTransitionError is treated as success: the
// machine is already where the event would have put it.
func Fire(ctx context.Context, m *fsm.FSM, event string) error {
	err := m.Event(ctx, event)
	if err == nil {
		return nil
	}

	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	return err
}
