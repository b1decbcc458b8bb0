package registry

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/growhub-io/growhub/internal/orchestrator/core"
	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
	"github.com/growhub-io/growhub/internal/orchestrator/queue"
	"github.com/growhub-io/growhub/pkg/log"
)

const shardCount = 16

// Registry is the authoritative per-device catalog of actuators. Every
// state or mode change flows through here: validation, the in-memory
// transition, the persisted write, the audit entry, and the queued command
// happen under the device's shard lock, so the sweep and operator requests
// can never interleave half-applied changes on the same device. Locking is
// sharded by device ID; work on one device never blocks another shard.
type Registry struct {
	repo  core.DeviceRepository
	queue *queue.Queue
	audit core.AuditRecorder
	sched *Scheduler

	logger log.Logger
	now    func() time.Time

	shards [shardCount]shard
}

type shard struct {
	mu      sync.RWMutex
	devices map[string]*model.Device
}

// New creates a registry backed by the given persistence port and command
// queue.
func New(repo core.DeviceRepository, q *queue.Queue, audit core.AuditRecorder) *Registry {
	r := &Registry{
		repo:   repo,
		queue:  q,
		audit:  audit,
		sched:  NewScheduler(),
		logger: log.WithName("registry"),
		now:    time.Now,
	}
	for i := range r.shards {
		r.shards[i].devices = make(map[string]*model.Device)
	}
	return r
}

// WithClock overrides the registry's time source. Test hook.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Scheduler exposes the deferred-effect scheduler for shutdown.
func (r *Registry) Scheduler() *Scheduler {
	return r.sched
}

func (r *Registry) shardFor(deviceID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID))
	return &r.shards[h.Sum32()%shardCount]
}

// Load primes the in-memory catalog from the repository. Called once at
// startup before any server accepts traffic.
func (r *Registry) Load(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load device catalog: %w", err)
	}

	for _, d := range devices {
		s := r.shardFor(d.ID)
		s.mu.Lock()
		s.devices[d.ID] = d
		s.mu.Unlock()
	}

	r.logger.Info("Device catalog loaded", "devices", len(devices))
	return nil
}

// RecordHeartbeat updates a device's liveness fields, provisioning the
// device with the default actuator set on first contact. It reports whether
// the device was newly created.
func (r *Registry) RecordHeartbeat(ctx context.Context, hb *model.Heartbeat) (created bool, err error) {
	ts := r.now()
	if hb.Timestamp != nil {
		ts = *hb.Timestamp
	}

	s := r.shardFor(hb.DeviceID)
	s.mu.Lock()
	defer s.mu.Unlock()

	dev, ok := s.devices[hb.DeviceID]
	if !ok {
		dev = &model.Device{
			ID:        hb.DeviceID,
			Actuators: model.DefaultActuators(),
		}
		s.devices[hb.DeviceID] = dev
		created = true
	}

	dev.LastHeartbeat = ts
	if hb.BatteryLevel != nil {
		dev.BatteryLevel = hb.BatteryLevel
	}
	if hb.Signal != nil {
		dev.Signal = hb.Signal
	}
	if hb.UptimeSeconds != nil {
		dev.UptimeSeconds = hb.UptimeSeconds
	}

	if created {
		if err := r.repo.Create(ctx, dev.Clone()); err != nil {
			delete(s.devices, hb.DeviceID)
			return false, fmt.Errorf("failed to provision device %s: %w", hb.DeviceID, err)
		}
		r.logger.Info("Device provisioned", "device", hb.DeviceID)
		return true, nil
	}

	if err := r.repo.UpdateHeartbeat(ctx, dev.Clone()); err != nil {
		return false, fmt.Errorf("failed to persist heartbeat for %s: %w", hb.DeviceID, err)
	}
	return false, nil
}

// Device returns a copy of the device record, or ErrDeviceNotFound.
func (r *Registry) Device(deviceID string) (*model.Device, error) {
	s := r.shardFor(deviceID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	dev, ok := s.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", deviceID, core.ErrDeviceNotFound)
	}
	return dev.Clone(), nil
}

// Devices returns a copy of every device record.
func (r *Registry) Devices() []*model.Device {
	var out []*model.Device
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, dev := range s.devices {
			out = append(out, dev.Clone())
		}
		s.mu.RUnlock()
	}
	return out
}

// SetStateRequest carries one desired-state change.
type SetStateRequest struct {
	DeviceID string
	Kind     model.ActuatorKind
	Desired  bool

	TriggeredBy model.TriggeredBy
	ActorID     string
	Reason      string

	// ExpireAfter, when set, reverts the actuator to its previous state
	// after the duration elapses, unless a newer change supersedes it.
	ExpireAfter time.Duration
}

// SetState applies a desired-state change: validates the actuator, no-ops on
// an unchanged value, and otherwise updates the state, writes an audit
// entry, and enqueues a delivery command (Critical when alert-triggered,
// High otherwise).
func (r *Registry) SetState(ctx context.Context, req SetStateRequest) (*StateChange, error) {
	if !req.TriggeredBy.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidTrigger, req.TriggeredBy)
	}

	s := r.shardFor(req.DeviceID)
	s.mu.Lock()
	defer s.mu.Unlock()

	act, err := r.actuatorLocked(s, req.DeviceID, req.Kind)
	if err != nil {
		return nil, err
	}

	change, changed := stateTransition(act, req.Desired)
	if !changed {
		// Idempotent: no audit entry, no command.
		return &change, nil
	}

	// A fresh change supersedes any deferred effect still pending on this
	// actuator.
	r.sched.Cancel(req.DeviceID, req.Kind)

	previous := act.State
	prev := *act
	act.State = req.Desired

	if err := r.applyEffectsLocked(ctx, req.DeviceID, act, prev, change, effectParams{
		triggeredBy: req.TriggeredBy,
		actorID:     req.ActorID,
		reason:      req.Reason,
		priority:    commandPriority(req.TriggeredBy),
		state:       &req.Desired,
	}); err != nil {
		act.State = previous
		return nil, err
	}

	if req.ExpireAfter > 0 {
		r.scheduleRevert(req.DeviceID, req.Kind, previous, req.ExpireAfter)
	}

	return &change, nil
}

// SetModeRequest carries one desired-mode change.
type SetModeRequest struct {
	DeviceID string
	Kind     model.ActuatorKind
	Desired  model.Mode

	TriggeredBy model.TriggeredBy
	ActorID     string
	Reason      string
}

// SetMode applies an operating-mode change. AUTO is rejected for the
// fertilizer pump with ErrModeNotSupported. Mode commands always queue at
// High priority.
func (r *Registry) SetMode(ctx context.Context, req SetModeRequest) (*StateChange, error) {
	trig := req.TriggeredBy
	if trig == "" {
		trig = model.TriggeredByManual
	}
	if !trig.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidTrigger, trig)
	}

	s := r.shardFor(req.DeviceID)
	s.mu.Lock()
	defer s.mu.Unlock()

	act, err := r.actuatorLocked(s, req.DeviceID, req.Kind)
	if err != nil {
		return nil, err
	}

	change, changed, err := modeTransition(act, req.Desired)
	if err != nil {
		return nil, fmt.Errorf("actuator %s: %w", req.Kind, err)
	}
	if !changed {
		return &change, nil
	}

	r.sched.Cancel(req.DeviceID, req.Kind)

	previous := act.Mode
	prev := *act
	act.Mode = req.Desired

	if err := r.applyEffectsLocked(ctx, req.DeviceID, act, prev, change, effectParams{
		triggeredBy: trig,
		actorID:     req.ActorID,
		reason:      req.Reason,
		priority:    model.PriorityHigh,
		mode:        &req.Desired,
	}); err != nil {
		act.Mode = previous
		return nil, err
	}

	return &change, nil
}

// GetState is a pure lookup of an actuator's current state.
func (r *Registry) GetState(deviceID string, kind model.ActuatorKind) (bool, error) {
	s := r.shardFor(deviceID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	act, err := r.actuatorLocked(s, deviceID, kind)
	if err != nil {
		return false, err
	}
	return act.State, nil
}

// GetMode is a pure lookup of an actuator's current mode.
func (r *Registry) GetMode(deviceID string, kind model.ActuatorKind) (model.Mode, error) {
	s := r.shardFor(deviceID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	act, err := r.actuatorLocked(s, deviceID, kind)
	if err != nil {
		return "", err
	}
	return act.Mode, nil
}

// actuatorLocked resolves a device's actuator; the caller holds the shard lock.
func (r *Registry) actuatorLocked(s *shard, deviceID string, kind model.ActuatorKind) (*model.Actuator, error) {
	dev, ok := s.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", deviceID, core.ErrDeviceNotFound)
	}
	act, ok := dev.Actuators[kind]
	if !ok {
		return nil, fmt.Errorf("device %s actuator %s: %w", deviceID, kind, core.ErrUnknownActuator)
	}
	return act, nil
}

type effectParams struct {
	triggeredBy model.TriggeredBy
	actorID     string
	reason      string
	priority    model.Priority
	state       *bool
	mode        *model.Mode
}

// applyEffectsLocked persists the actuator, writes the audit entry, and
// enqueues the delivery command. The caller holds the shard lock and rolls
// the in-memory value back if this fails; the persisted value is rolled back
// here, so catalog and store never diverge across a restart.
func (r *Registry) applyEffectsLocked(ctx context.Context, deviceID string, act *model.Actuator, prev model.Actuator, change StateChange, p effectParams) error {
	if err := r.repo.UpdateActuator(ctx, deviceID, act); err != nil {
		return fmt.Errorf("failed to persist actuator %s/%s: %w", deviceID, act.Kind, err)
	}

	// Undoes the persisted write when a later effect fails. An un-audited
	// state change must not survive in the store.
	compensate := func(cause error) error {
		if rbErr := r.repo.UpdateActuator(ctx, deviceID, &prev); rbErr != nil {
			r.logger.Error(rbErr, "Failed to restore persisted actuator after effect failure",
				"device", deviceID, "actuator", act.Kind)
		}
		return cause
	}

	if err := r.audit.Record(ctx, &model.AuditEntry{
		DeviceID:    deviceID,
		Actuator:    string(act.Kind),
		Previous:    change.Previous,
		New:         change.New,
		TriggeredBy: p.triggeredBy,
		ActorID:     p.actorID,
		Reason:      p.reason,
		Timestamp:   r.now(),
	}); err != nil {
		return compensate(fmt.Errorf("failed to record audit entry: %w", err))
	}

	if _, err := r.queue.Enqueue(ctx, &model.Command{
		DeviceID:     deviceID,
		Kind:         act.Kind,
		DesiredState: p.state,
		DesiredMode:  p.mode,
		Priority:     p.priority,
	}); err != nil {
		return compensate(fmt.Errorf("failed to enqueue command: %w", err))
	}

	return nil
}

// scheduleRevert arms the expiry ticket for a temporary override. The revert
// runs through SetState so it is audited like any other change.
func (r *Registry) scheduleRevert(deviceID string, kind model.ActuatorKind, previous bool, after time.Duration) {
	r.sched.Schedule(deviceID, kind, after, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := r.SetState(ctx, SetStateRequest{
			DeviceID:    deviceID,
			Kind:        kind,
			Desired:     previous,
			TriggeredBy: model.TriggeredBySchedule,
			Reason:      "manual override expired",
		}); err != nil {
			r.logger.Error(err, "Failed to revert expired override", "device", deviceID, "actuator", kind)
		}
	})
}
