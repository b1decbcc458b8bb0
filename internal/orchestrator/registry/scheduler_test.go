package registry

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
)

// TestScheduler_SupersedesSameKey verifies a new ticket for the same
// device+actuator replaces the old one, so only the newest effect fires.
func TestScheduler_SupersedesSameKey(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var first, second atomic.Int32
	s.Schedule("dev-1", model.ActuatorWaterPump, 20*time.Millisecond, func() { first.Add(1) })
	s.Schedule("dev-1", model.ActuatorWaterPump, 20*time.Millisecond, func() { second.Add(1) })

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, first.Load())
}

// TestScheduler_CancelStopsTicket verifies a cancelled ticket never fires
// and reports whether anything was pending.
func TestScheduler_CancelStopsTicket(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("dev-1", model.ActuatorWaterPump, 20*time.Millisecond, func() { fired.Add(1) })

	assert.True(t, s.Cancel("dev-1", model.ActuatorWaterPump))
	assert.False(t, s.Cancel("dev-1", model.ActuatorWaterPump))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

// TestScheduler_KeysAreIndependent verifies tickets on different actuators
// of the same device do not supersede each other.
func TestScheduler_KeysAreIndependent(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var pump, fan atomic.Int32
	s.Schedule("dev-1", model.ActuatorWaterPump, 10*time.Millisecond, func() { pump.Add(1) })
	s.Schedule("dev-1", model.ActuatorVentilationFan, 10*time.Millisecond, func() { fan.Add(1) })

	require.Eventually(t, func() bool {
		return pump.Load() == 1 && fan.Load() == 1
	}, time.Second, 5*time.Millisecond)
}
