package registry

import (
	"sync"
	"time"

	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
)

type ticketKey struct {
	deviceID string
	kind     model.ActuatorKind
}

// Scheduler tracks cancellable one-shot effects keyed by device+actuator.
// A new ticket for the same key supersedes (cancels) the previous one, so a
// stale deferred effect can never apply after a newer change landed.
type Scheduler struct {
	mu     sync.Mutex
	timers map[ticketKey]*time.Timer
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[ticketKey]*time.Timer)}
}

// Schedule arms fn to run after d, replacing any pending ticket for the same
// device+actuator.
func (s *Scheduler) Schedule(deviceID string, kind model.ActuatorKind, d time.Duration, fn func()) {
	key := ticketKey{deviceID: deviceID, kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
	}

	s.timers[key] = time.AfterFunc(d, func() {
		// Drop the ticket before running so the effect can reschedule.
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
}

// Cancel stops a pending ticket. It reports whether one existed.
func (s *Scheduler) Cancel(deviceID string, kind model.ActuatorKind) bool {
	key := ticketKey{deviceID: deviceID, kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, key)
	return true
}

// Stop cancels every pending ticket.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}
