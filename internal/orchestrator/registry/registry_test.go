package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growhub-io/growhub/internal/orchestrator/core"
	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
	"github.com/growhub-io/growhub/internal/orchestrator/queue"
)

type fakeRepo struct {
	mu      sync.Mutex
	devices map[string]*model.Device

	createErr   error
	actuatorErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{devices: make(map[string]*model.Device)}
}

func (f *fakeRepo) Get(_ context.Context, id string) (*model.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dev, ok := f.devices[id]
	if !ok {
		return nil, core.ErrDeviceNotFound
	}
	return dev.Clone(), nil
}

func (f *fakeRepo) List(_ context.Context) ([]*model.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Device
	for _, d := range f.devices {
		out = append(out, d.Clone())
	}
	return out, nil
}

func (f *fakeRepo) Create(_ context.Context, dev *model.Device) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices[dev.ID] = dev.Clone()
	return nil
}

func (f *fakeRepo) UpdateHeartbeat(_ context.Context, dev *model.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices[dev.ID] = dev.Clone()
	return nil
}

func (f *fakeRepo) UpdateActuator(_ context.Context, deviceID string, act *model.Actuator) error {
	if f.actuatorErr != nil {
		return f.actuatorErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if dev, ok := f.devices[deviceID]; ok {
		cp := *act
		dev.Actuators[act.Kind] = &cp
	}
	return nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []*model.AuditEntry

	recordErr error
}

func (r *recordingAudit) Record(_ context.Context, e *model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingAudit) all() []*model.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.AuditEntry(nil), r.entries...)
}

func newTestRegistry(t *testing.T) (*Registry, *fakeRepo, *queue.Queue, *recordingAudit) {
	t.Helper()
	repo := newFakeRepo()
	audit := &recordingAudit{}
	q := queue.New(audit, nil)
	reg := New(repo, q, audit)
	t.Cleanup(reg.Scheduler().Stop)

	_, err := reg.RecordHeartbeat(context.Background(), &model.Heartbeat{DeviceID: "dev-1"})
	require.NoError(t, err)
	return reg, repo, q, audit
}

// TestRecordHeartbeat_ProvisionsUnknownDevice verifies first contact creates
// the device with the default actuator set.
func TestRecordHeartbeat_ProvisionsUnknownDevice(t *testing.T) {
	reg, repo, _, _ := newTestRegistry(t)

	dev, err := reg.Device("dev-1")
	require.NoError(t, err)
	require.Len(t, dev.Actuators, 3)
	assert.Equal(t, model.ModeAuto, dev.Actuators[model.ActuatorWaterPump].Mode)
	assert.Equal(t, model.ModeAuto, dev.Actuators[model.ActuatorVentilationFan].Mode)
	assert.Equal(t, model.ModeManual, dev.Actuators[model.ActuatorFertilizerPump].Mode)

	// Second heartbeat is an update, not a re-provision.
	created, err := reg.RecordHeartbeat(context.Background(), &model.Heartbeat{DeviceID: "dev-1"})
	require.NoError(t, err)
	assert.False(t, created)

	persisted, err := repo.Get(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Len(t, persisted.Actuators, 3)
}

// TestRecordHeartbeat_RollsBackOnPersistFailure verifies a failed provision
// leaves no phantom device in the catalog.
func TestRecordHeartbeat_RollsBackOnPersistFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("disk full")
	audit := &recordingAudit{}
	reg := New(repo, queue.New(audit, nil), audit)
	t.Cleanup(reg.Scheduler().Stop)

	_, err := reg.RecordHeartbeat(context.Background(), &model.Heartbeat{DeviceID: "dev-1"})
	require.Error(t, err)

	_, err = reg.Device("dev-1")
	assert.ErrorIs(t, err, core.ErrDeviceNotFound)
}

// TestSetState_AppliesChangeWithEffects verifies the full effect chain:
// catalog update, persisted write, audit entry, queued command.
func TestSetState_AppliesChangeWithEffects(t *testing.T) {
	reg, repo, q, audit := newTestRegistry(t)
	ctx := context.Background()

	change, err := reg.SetState(ctx, SetStateRequest{
		DeviceID:    "dev-1",
		Kind:        model.ActuatorWaterPump,
		Desired:     true,
		TriggeredBy: model.TriggeredByManual,
		ActorID:     "operator-7",
		Reason:      "dry bed",
	})
	require.NoError(t, err)
	assert.Equal(t, "OFF", change.Previous)
	assert.Equal(t, "ON", change.New)

	state, err := reg.GetState("dev-1", model.ActuatorWaterPump)
	require.NoError(t, err)
	assert.True(t, state)

	persisted, err := repo.Get(ctx, "dev-1")
	require.NoError(t, err)
	assert.True(t, persisted.Actuators[model.ActuatorWaterPump].State)

	entries := audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "operator-7", entries[0].ActorID)
	assert.Equal(t, model.TriggeredByManual, entries[0].TriggeredBy)

	cmds := q.PendingFor(ctx, "dev-1")
	require.Len(t, cmds, 1)
	assert.Equal(t, model.PriorityHigh, cmds[0].Priority)
	require.NotNil(t, cmds[0].DesiredState)
	assert.True(t, *cmds[0].DesiredState)
}

// TestSetState_NoOpProducesNoEffects verifies setting the current value is
// idempotent: no audit entry and no command.
func TestSetState_NoOpProducesNoEffects(t *testing.T) {
	reg, _, q, audit := newTestRegistry(t)

	change, err := reg.SetState(context.Background(), SetStateRequest{
		DeviceID:    "dev-1",
		Kind:        model.ActuatorWaterPump,
		Desired:     false,
		TriggeredBy: model.TriggeredByManual,
	})
	require.NoError(t, err)
	assert.Equal(t, change.Previous, change.New)

	assert.Empty(t, audit.all())
	assert.Zero(t, q.PendingCount("dev-1"))
}

// TestSetState_AlertTriggerGetsCriticalPriority verifies alert-driven
// changes preempt operator traffic in the delivery queue.
func TestSetState_AlertTriggerGetsCriticalPriority(t *testing.T) {
	reg, _, q, _ := newTestRegistry(t)

	_, err := reg.SetState(context.Background(), SetStateRequest{
		DeviceID:    "dev-1",
		Kind:        model.ActuatorVentilationFan,
		Desired:     true,
		TriggeredBy: model.TriggeredByAlert,
		Reason:      "temperature over ceiling",
	})
	require.NoError(t, err)

	cmds := q.PendingFor(context.Background(), "dev-1")
	require.Len(t, cmds, 1)
	assert.Equal(t, model.PriorityCritical, cmds[0].Priority)
}

// TestSetState_RollsBackOnEffectFailure verifies the in-memory state is
// restored when the persisted write fails.
func TestSetState_RollsBackOnEffectFailure(t *testing.T) {
	reg, repo, _, audit := newTestRegistry(t)
	repo.actuatorErr = errors.New("database locked")

	_, err := reg.SetState(context.Background(), SetStateRequest{
		DeviceID:    "dev-1",
		Kind:        model.ActuatorWaterPump,
		Desired:     true,
		TriggeredBy: model.TriggeredByManual,
	})
	require.Error(t, err)

	state, err := reg.GetState("dev-1", model.ActuatorWaterPump)
	require.NoError(t, err)
	assert.False(t, state)
	assert.Empty(t, audit.all())
}

// TestSetState_AuditFailureRevertsPersistedState verifies that when the
// audit write fails after the actuator row was already updated, the
// persisted value is restored along with the in-memory one, so a reload
// cannot resurrect an un-audited, never-commanded change.
func TestSetState_AuditFailureRevertsPersistedState(t *testing.T) {
	reg, repo, q, audit := newTestRegistry(t)
	audit.recordErr = errors.New("audit store unavailable")

	_, err := reg.SetState(context.Background(), SetStateRequest{
		DeviceID:    "dev-1",
		Kind:        model.ActuatorWaterPump,
		Desired:     true,
		TriggeredBy: model.TriggeredByManual,
	})
	require.Error(t, err)

	state, err := reg.GetState("dev-1", model.ActuatorWaterPump)
	require.NoError(t, err)
	assert.False(t, state)

	dev, err := repo.Get(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.False(t, dev.Actuators[model.ActuatorWaterPump].State,
		"persisted state must match the rolled-back catalog")

	assert.Zero(t, q.PendingCount("dev-1"))
}

// TestSetState_Validation covers the rejection paths: unknown device,
// unknown actuator, bad trigger.
func TestSetState_Validation(t *testing.T) {
	reg, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.SetState(ctx, SetStateRequest{
		DeviceID: "ghost", Kind: model.ActuatorWaterPump, Desired: true, TriggeredBy: model.TriggeredByManual,
	})
	assert.ErrorIs(t, err, core.ErrDeviceNotFound)

	_, err = reg.SetState(ctx, SetStateRequest{
		DeviceID: "dev-1", Kind: "Sprinkler", Desired: true, TriggeredBy: model.TriggeredByManual,
	})
	assert.ErrorIs(t, err, core.ErrUnknownActuator)

	_, err = reg.SetState(ctx, SetStateRequest{
		DeviceID: "dev-1", Kind: model.ActuatorWaterPump, Desired: true, TriggeredBy: "cosmic-ray",
	})
	assert.ErrorIs(t, err, core.ErrInvalidTrigger)
}

// TestSetMode_FertilizerPumpRejectsAuto verifies the manual-only rule for
// the fertilizer pump.
func TestSetMode_FertilizerPumpRejectsAuto(t *testing.T) {
	reg, _, q, audit := newTestRegistry(t)

	_, err := reg.SetMode(context.Background(), SetModeRequest{
		DeviceID: "dev-1",
		Kind:     model.ActuatorFertilizerPump,
		Desired:  model.ModeAuto,
	})
	assert.ErrorIs(t, err, core.ErrModeNotSupported)

	// Rejection leaves no trace.
	assert.Empty(t, audit.all())
	assert.Zero(t, q.PendingCount("dev-1"))

	mode, err := reg.GetMode("dev-1", model.ActuatorFertilizerPump)
	require.NoError(t, err)
	assert.Equal(t, model.ModeManual, mode)
}

// TestSetMode_AppliesChange verifies a mode change queues a High-priority
// mode command and defaults the trigger to manual.
func TestSetMode_AppliesChange(t *testing.T) {
	reg, _, q, audit := newTestRegistry(t)

	change, err := reg.SetMode(context.Background(), SetModeRequest{
		DeviceID: "dev-1",
		Kind:     model.ActuatorWaterPump,
		Desired:  model.ModeManual,
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.ModeAuto), change.Previous)
	assert.Equal(t, string(model.ModeManual), change.New)

	entries := audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.TriggeredByManual, entries[0].TriggeredBy)

	cmds := q.PendingFor(context.Background(), "dev-1")
	require.Len(t, cmds, 1)
	assert.Equal(t, model.PriorityHigh, cmds[0].Priority)
	require.NotNil(t, cmds[0].DesiredMode)
	assert.Equal(t, model.ModeManual, *cmds[0].DesiredMode)
}

// TestSetMode_InvalidMode verifies modes outside AUTO/MANUAL are rejected.
func TestSetMode_InvalidMode(t *testing.T) {
	reg, _, _, _ := newTestRegistry(t)

	_, err := reg.SetMode(context.Background(), SetModeRequest{
		DeviceID: "dev-1",
		Kind:     model.ActuatorWaterPump,
		Desired:  "TURBO",
	})
	assert.ErrorIs(t, err, core.ErrInvalidMode)
}

// TestSetState_ExpireAfterRevertsState verifies the deferred revert fires
// and is audited as schedule-triggered.
func TestSetState_ExpireAfterRevertsState(t *testing.T) {
	reg, _, _, audit := newTestRegistry(t)

	_, err := reg.SetState(context.Background(), SetStateRequest{
		DeviceID:    "dev-1",
		Kind:        model.ActuatorWaterPump,
		Desired:     true,
		TriggeredBy: model.TriggeredByManual,
		ExpireAfter: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		state, err := reg.GetState("dev-1", model.ActuatorWaterPump)
		return err == nil && !state
	}, time.Second, 5*time.Millisecond)

	entries := audit.all()
	require.Len(t, entries, 2)
	assert.Equal(t, model.TriggeredBySchedule, entries[1].TriggeredBy)
}

// TestSetState_NewChangeSupersedesDeferredRevert verifies an explicit change
// cancels a pending expiry ticket.
func TestSetState_NewChangeSupersedesDeferredRevert(t *testing.T) {
	reg, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.SetState(ctx, SetStateRequest{
		DeviceID:    "dev-1",
		Kind:        model.ActuatorWaterPump,
		Desired:     true,
		TriggeredBy: model.TriggeredByManual,
		ExpireAfter: 30 * time.Millisecond,
	})
	require.NoError(t, err)

	// Turning it off by hand supersedes the scheduled revert.
	_, err = reg.SetState(ctx, SetStateRequest{
		DeviceID:    "dev-1",
		Kind:        model.ActuatorWaterPump,
		Desired:     false,
		TriggeredBy: model.TriggeredByManual,
	})
	require.NoError(t, err)

	_, err = reg.SetState(ctx, SetStateRequest{
		DeviceID:    "dev-1",
		Kind:        model.ActuatorWaterPump,
		Desired:     true,
		TriggeredBy: model.TriggeredByManual,
	})
	require.NoError(t, err)

	// Past the original expiry the state must still be what was last set.
	time.Sleep(60 * time.Millisecond)
	state, err := reg.GetState("dev-1", model.ActuatorWaterPump)
	require.NoError(t, err)
	assert.True(t, state)
}
