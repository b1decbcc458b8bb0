package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
)

func TestStore_LatestOverwrites(t *testing.T) {
	s := NewStore()

	_, ok := s.Latest("dev-1")
	assert.False(t, ok)

	s.Update("dev-1", &model.SensorSnapshot{GreenhouseTemp: 21})
	s.Update("dev-1", &model.SensorSnapshot{GreenhouseTemp: 24})

	snap, ok := s.Latest("dev-1")
	require.True(t, ok)
	assert.Equal(t, 24.0, snap.GreenhouseTemp)
}

func TestStore_StampsReceiveTime(t *testing.T) {
	s := NewStore()
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.Update("dev-1", &model.SensorSnapshot{SoilMoisture: 30})
	snap, ok := s.Latest("dev-1")
	require.True(t, ok)
	assert.Equal(t, fixed, snap.ReportedAt)

	// A caller-provided timestamp is preserved.
	reported := fixed.Add(-time.Minute)
	s.Update("dev-1", &model.SensorSnapshot{SoilMoisture: 31, ReportedAt: reported})
	snap, _ = s.Latest("dev-1")
	assert.Equal(t, reported, snap.ReportedAt)
}

func TestStore_LatestReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Update("dev-1", &model.SensorSnapshot{WaterTank: 50})

	snap, _ := s.Latest("dev-1")
	snap.WaterTank = 0

	again, _ := s.Latest("dev-1")
	assert.Equal(t, 50.0, again.WaterTank)
}
