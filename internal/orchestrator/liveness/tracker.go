package liveness

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
)

// tracker is the monitor's working record of one offline episode: the
// externally visible OfflineTracker fields plus the state machine and the
// offline duration observed by the previous sweep (for boundary-crossing
// detection).
type tracker struct {
	// mu guards the OfflineTracker fields and lastOffline. The sweep is the
	// only writer, but Status reads concurrently with it.
	mu sync.Mutex

	model.OfflineTracker

	// lastOffline is the offline duration at the previous sweep of this
	// device. Escalation fires when the elapsed time crosses an
	// escalation-interval boundary between two sweeps, which stays correct
	// for any sweep interval.
	lastOffline time.Duration

	fsm *fsm.FSM
}

// snapshot copies the externally visible fields without tearing against an
// in-flight sweep.
func (t *tracker) snapshot() model.OfflineTracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.OfflineTracker
}

const trackerShards = 16

// trackerStore is a sharded map of offline trackers keyed by device ID.
// Owned exclusively by the monitor; nothing else reads or writes trackers.
type trackerStore struct {
	shards [trackerShards]trackerShard
}

type trackerShard struct {
	mu       sync.Mutex
	trackers map[string]*tracker
}

func newTrackerStore() *trackerStore {
	s := &trackerStore{}
	for i := range s.shards {
		s.shards[i].trackers = make(map[string]*tracker)
	}
	return s
}

func (s *trackerStore) shardFor(deviceID string) *trackerShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID))
	return &s.shards[h.Sum32()%trackerShards]
}

func (s *trackerStore) get(deviceID string) (*tracker, bool) {
	sh := s.shardFor(deviceID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	t, ok := sh.trackers[deviceID]
	return t, ok
}

func (s *trackerStore) put(deviceID string, t *tracker) {
	sh := s.shardFor(deviceID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.trackers[deviceID] = t
}

func (s *trackerStore) delete(deviceID string) {
	sh := s.shardFor(deviceID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.trackers, deviceID)
}
