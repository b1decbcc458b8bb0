package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growhub-io/growhub/internal/orchestrator/core"
	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
	genericoptions "github.com/growhub-io/growhub/pkg/options"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	opts := genericoptions.NewSqliteOptions()
	opts.Path = ":memory:"
	s, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDevice(ts time.Time) *model.Device {
	return &model.Device{
		ID:            "aa:bb:cc:dd:ee:ff",
		LastHeartbeat: ts,
		Actuators:     model.DefaultActuators(),
	}
}

// TestDeviceRepository_RoundTrip covers create, get, list, and the two
// update paths.
func TestDeviceRepository_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.Devices()
	ctx := context.Background()
	ts := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, testDevice(ts)))

	dev, err := repo.Get(ctx, "aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.True(t, dev.LastHeartbeat.Equal(ts))
	require.Len(t, dev.Actuators, 3)
	assert.Equal(t, model.ModeManual, dev.Actuators[model.ActuatorFertilizerPump].Mode)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	// Heartbeat update.
	battery := 87.5
	dev.LastHeartbeat = ts.Add(10 * time.Minute)
	dev.BatteryLevel = &battery
	require.NoError(t, repo.UpdateHeartbeat(ctx, dev))

	dev, err = repo.Get(ctx, "aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.True(t, dev.LastHeartbeat.Equal(ts.Add(10*time.Minute)))
	require.NotNil(t, dev.BatteryLevel)
	assert.Equal(t, 87.5, *dev.BatteryLevel)

	// Actuator update.
	require.NoError(t, repo.UpdateActuator(ctx, dev.ID, &model.Actuator{
		Kind:  model.ActuatorWaterPump,
		State: true,
		Mode:  model.ModeManual,
	}))

	dev, err = repo.Get(ctx, "aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.True(t, dev.Actuators[model.ActuatorWaterPump].State)
	assert.Equal(t, model.ModeManual, dev.Actuators[model.ActuatorWaterPump].Mode)
}

// TestDeviceRepository_NotFound verifies the sentinel error is returned for
// unknown devices.
func TestDeviceRepository_NotFound(t *testing.T) {
	s := openTestStore(t)
	repo := s.Devices()
	ctx := context.Background()

	_, err := repo.Get(ctx, "ghost")
	assert.ErrorIs(t, err, core.ErrDeviceNotFound)

	err = repo.UpdateHeartbeat(ctx, testDevice(time.Now()))
	assert.ErrorIs(t, err, core.ErrDeviceNotFound)

	err = repo.UpdateActuator(ctx, "ghost", &model.Actuator{Kind: model.ActuatorWaterPump, Mode: model.ModeAuto})
	assert.ErrorIs(t, err, core.ErrDeviceNotFound)
}

// TestAuditRecorder_AppendAndRead verifies entries come back newest first
// with every field intact.
func TestAuditRecorder_AppendAndRead(t *testing.T) {
	s := openTestStore(t)
	audit := s.Audit()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, audit.Record(ctx, &model.AuditEntry{
			DeviceID:    "dev-1",
			Actuator:    string(model.ActuatorWaterPump),
			Previous:    "OFF",
			New:         "ON",
			TriggeredBy: model.TriggeredByManual,
			ActorID:     "operator-1",
			Reason:      "test",
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := s.Entries(ctx, "dev-1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Timestamp.After(entries[1].Timestamp))
	assert.Equal(t, model.TriggeredByManual, entries[0].TriggeredBy)
	assert.Equal(t, "operator-1", entries[0].ActorID)

	other, err := s.Entries(ctx, "dev-2", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

// TestCommandArchiver_StoresTerminalCommand verifies the fallback archive
// keeps the full command payload and tolerates duplicate archival.
func TestCommandArchiver_StoresTerminalCommand(t *testing.T) {
	s := openTestStore(t)
	archive := s.Archive()
	ctx := context.Background()

	on := true
	cmd := &model.Command{
		ID:           "cmd-1",
		DeviceID:     "dev-1",
		Kind:         model.ActuatorWaterPump,
		DesiredState: &on,
		Priority:     model.PriorityHigh,
		Status:       model.CommandStatusAcknowledged,
	}
	require.NoError(t, archive.Archive(ctx, cmd))
	require.NoError(t, archive.Archive(ctx, cmd))

	var count int
	row := s.db.QueryRow(`SELECT COUNT(*) FROM archived_commands WHERE device_id='dev-1'`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}
