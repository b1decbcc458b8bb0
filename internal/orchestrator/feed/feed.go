// Package feed keeps the most recent sensor snapshot per device. The store
// is write-mostly and tiny: one record per device, overwritten on every
// sensor report, read by the liveness monitor's critical assessment.
package feed

import (
	"sync"
	"time"

	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
)

// Store is an in-memory latest-value cache of sensor snapshots.
type Store struct {
	mu    sync.RWMutex
	byDev map[string]*model.SensorSnapshot
	now   func() time.Time
}

// NewStore creates an empty snapshot store.
func NewStore() *Store {
	return &Store{
		byDev: make(map[string]*model.SensorSnapshot),
		now:   time.Now,
	}
}

// Update stores the snapshot as the device's latest reading, stamping the
// receive time when the report carries none.
func (s *Store) Update(deviceID string, snap *model.SensorSnapshot) {
	cp := *snap
	if cp.ReportedAt.IsZero() {
		cp.ReportedAt = s.now()
	}

	s.mu.Lock()
	s.byDev[deviceID] = &cp
	s.mu.Unlock()
}

// Latest returns a copy of the device's most recent snapshot. The second
// return is false when the device has never reported.
func (s *Store) Latest(deviceID string) (*model.SensorSnapshot, bool) {
	s.mu.RLock()
	snap, ok := s.byDev[deviceID]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	cp := *snap
	return &cp, true
}
