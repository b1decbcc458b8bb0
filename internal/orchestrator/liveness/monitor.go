package liveness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/growhub-io/growhub/internal/orchestrator/core"
	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
	"github.com/growhub-io/growhub/internal/orchestrator/registry"
	"github.com/growhub-io/growhub/internal/orchestrator/remediation"
	"github.com/growhub-io/growhub/internal/pkg/metrics"
	fsmutil "github.com/growhub-io/growhub/internal/pkg/util/fsm"
	"github.com/growhub-io/growhub/pkg/log"
)

// Config holds the monitor's thresholds.
type Config struct {
	// SweepInterval is how often every device is evaluated.
	SweepInterval time.Duration

	// OfflineThreshold is the heartbeat age past which a device is offline.
	OfflineThreshold time.Duration

	// EmergencyThreshold is the offline duration past which the emergency
	// plan is applied.
	EmergencyThreshold time.Duration

	// EscalationInterval is the elapsed offline time between escalation
	// notifications.
	EscalationInterval time.Duration

	// MaxEscalations caps escalation notifications per offline episode.
	MaxEscalations int
}

// Monitor runs the periodic liveness sweep. It owns the offline-tracker
// store and drives each device's offline state machine, calling the
// remediation engine and applying its actions through the registry so every
// remediation is audited like a manual change.
type Monitor struct {
	cfg Config

	registry *registry.Registry
	engine   *remediation.Engine
	feed     core.SensorFeed
	notifier core.EventNotifier
	audit    core.AuditRecorder

	trackers *trackerStore

	// inflight guards against overlapping evaluations of the same device,
	// which could double-apply emergency actions.
	inflight sync.Map

	logger log.Logger
	now    func() time.Time
}

// New creates a liveness monitor.
func New(cfg Config, reg *registry.Registry, engine *remediation.Engine, feed core.SensorFeed, notifier core.EventNotifier, audit core.AuditRecorder) *Monitor {
	return &Monitor{
		cfg:      cfg,
		registry: reg,
		engine:   engine,
		feed:     feed,
		notifier: notifier,
		audit:    audit,
		trackers: newTrackerStore(),
		logger:   log.WithName("liveness"),
		now:      time.Now,
	}
}

// WithClock overrides the monitor's time source. Test hook.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// Start runs the sweep loop until the context is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info("Starting liveness monitor",
		"sweepInterval", m.cfg.SweepInterval,
		"offlineThreshold", m.cfg.OfflineThreshold,
		"emergencyThreshold", m.cfg.EmergencyThreshold)

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Liveness monitor stopped")
			return nil
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep evaluates every device once. A failure on one device is logged and
// skipped; all other devices proceed unaffected.
func (m *Monitor) Sweep(ctx context.Context) {
	start := time.Now()

	for _, dev := range m.registry.Devices() {
		if _, busy := m.inflight.LoadOrStore(dev.ID, struct{}{}); busy {
			m.logger.Warn("Previous evaluation still in flight, skipping", "device", dev.ID)
			continue
		}

		if err := m.sweepDevice(ctx, dev); err != nil {
			m.logger.Error(err, "Device evaluation failed, will retry next sweep", "device", dev.ID)
		}

		m.inflight.Delete(dev.ID)
	}

	metrics.SweepDurationSeconds.Observe(time.Since(start).Seconds())
}

// Status returns a copy of the device's offline tracker, if one exists.
// Absence means the device is online.
func (m *Monitor) Status(deviceID string) (*model.OfflineTracker, bool) {
	t, ok := m.trackers.get(deviceID)
	if !ok {
		return nil, false
	}
	cp := t.snapshot()
	return &cp, true
}

func (m *Monitor) sweepDevice(ctx context.Context, dev *model.Device) error {
	now := m.now()
	offline := now.Sub(dev.LastHeartbeat)
	tr, exists := m.trackers.get(dev.ID)

	switch {
	case offline <= m.cfg.OfflineThreshold && !exists:
		// Healthy and already known healthy.
		return nil

	case offline <= m.cfg.OfflineThreshold && exists:
		return m.recoverDevice(ctx, dev, tr, now)

	case !exists:
		return m.markOffline(ctx, dev, offline, now)

	default:
		return m.evaluateOffline(ctx, dev, tr, offline, now)
	}
}

// markOffline opens an offline episode: creates the tracker, emits the
// warning event, and runs the immediate critical assessment, which may apply
// targeted actions well before the emergency threshold.
func (m *Monitor) markOffline(ctx context.Context, dev *model.Device, offline time.Duration, now time.Time) error {
	tr := &tracker{
		OfflineTracker: model.OfflineTracker{OfflineSince: dev.LastHeartbeat},
		lastOffline:    offline,
		fsm:            newLivenessFSM(dev.ID, m.logger),
	}
	if err := fsmutil.Fire(ctx, tr.fsm, EventHeartbeatLost); err != nil {
		return fmt.Errorf("liveness transition: %w", err)
	}
	m.trackers.put(dev.ID, tr)
	metrics.DevicesOffline.Inc()

	m.publish(ctx, &model.Event{
		Type:      model.EventDeviceOffline,
		DeviceID:  dev.ID,
		Severity:  model.SeverityWarning,
		Message:   fmt.Sprintf("device silent for %s", offline.Round(time.Minute)),
		Timestamp: now,
		Fields:    map[string]any{"offlineMinutes": int(offline.Minutes())},
	})

	// Critical conditions do not wait for the emergency threshold.
	snap, ok := m.feed.Latest(dev.ID)
	if !ok {
		return nil
	}
	actions, alerts := m.engine.AssessCritical(dev, snap)
	for _, a := range actions {
		if err := m.applyAction(ctx, dev.ID, a); err != nil {
			return fmt.Errorf("critical assessment action: %w", err)
		}
	}
	for _, alert := range alerts {
		m.publish(ctx, &model.Event{
			Type:      model.EventCriticalAlert,
			DeviceID:  dev.ID,
			Severity:  model.SeverityCritical,
			Message:   alert.Message,
			Timestamp: now,
		})
	}

	return nil
}

// evaluateOffline advances an open offline episode: escalation events on
// each crossed boundary and the one-shot emergency plan past the threshold.
func (m *Monitor) evaluateOffline(ctx context.Context, dev *model.Device, tr *tracker, offline time.Duration, now time.Time) error {
	// Escalate when the elapsed offline time crossed an interval boundary
	// since the previous sweep.
	tr.mu.Lock()
	crossed := int(offline/m.cfg.EscalationInterval) > int(tr.lastOffline/m.cfg.EscalationInterval)
	tr.lastOffline = offline
	escalate := crossed && tr.EscalationsSent < m.cfg.MaxEscalations
	tr.mu.Unlock()

	if escalate {
		severity := model.SeverityHigh
		if offline > m.cfg.EmergencyThreshold {
			severity = model.SeverityCritical
		}

		if tr.fsm.Is(StateOfflineWarning) {
			if err := fsmutil.Fire(ctx, tr.fsm, EventEscalate); err != nil {
				return fmt.Errorf("liveness transition: %w", err)
			}
		}

		tr.mu.Lock()
		tr.EscalationsSent++
		escalations := tr.EscalationsSent
		tr.mu.Unlock()

		m.publish(ctx, &model.Event{
			Type:      model.EventDeviceOfflineEscalation,
			DeviceID:  dev.ID,
			Severity:  severity,
			Message:   fmt.Sprintf("device offline for %s", offline.Round(time.Minute)),
			Timestamp: now,
			Fields: map[string]any{
				"offlineMinutes": int(offline.Minutes()),
				"escalation":     escalations,
			},
		})
	}

	if offline > m.cfg.EmergencyThreshold && !tr.snapshot().EmergencyApplied {
		if err := m.applyEmergency(ctx, dev, tr, offline, now); err != nil {
			return err
		}
	}

	return nil
}

// applyEmergency runs the failsafe plan exactly once per offline episode.
func (m *Monitor) applyEmergency(ctx context.Context, dev *model.Device, tr *tracker, offline time.Duration, now time.Time) error {
	if !tr.fsm.Is(StateOfflineEmergency) {
		if err := fsmutil.Fire(ctx, tr.fsm, EventEmergency); err != nil {
			return fmt.Errorf("liveness transition: %w", err)
		}
	}

	applied := make([]string, 0, 3)
	for _, a := range m.engine.EmergencyPlan(dev) {
		if err := m.applyAction(ctx, dev.ID, a); err != nil {
			return fmt.Errorf("emergency action %s: %w", a.Kind, err)
		}
		applied = append(applied, string(a.Kind))
	}

	if err := m.audit.Record(ctx, &model.AuditEntry{
		DeviceID:    dev.ID,
		Actuator:    model.SystemActuator,
		Previous:    StateOfflineEscalating,
		New:         StateOfflineEmergency,
		TriggeredBy: model.TriggeredByAlert,
		Reason:      "emergency_failsafe",
		Timestamp:   now,
	}); err != nil {
		return fmt.Errorf("failed to record emergency audit entry: %w", err)
	}

	// Marking applied only after every action landed keeps this idempotent:
	// a partial failure is retried whole on the next sweep.
	tr.mu.Lock()
	tr.EmergencyApplied = true
	tr.mu.Unlock()

	m.publish(ctx, &model.Event{
		Type:      model.EventEmergencyFailsafe,
		DeviceID:  dev.ID,
		Severity:  model.SeverityCritical,
		Message:   fmt.Sprintf("emergency failsafe applied after %s offline", offline.Round(time.Minute)),
		Timestamp: now,
		Fields:    map[string]any{"actions": applied},
	})

	m.logger.Warn("Emergency failsafe applied", "device", dev.ID, "offline", offline)
	return nil
}

// recoverDevice closes an offline episode on heartbeat resumption.
func (m *Monitor) recoverDevice(ctx context.Context, dev *model.Device, tr *tracker, now time.Time) error {
	emergencyWasApplied := tr.snapshot().EmergencyApplied
	if emergencyWasApplied {
		for _, a := range m.engine.RecoveryPlan(dev) {
			if err := m.applyAction(ctx, dev.ID, a); err != nil {
				return fmt.Errorf("recovery action %s: %w", a.Kind, err)
			}
		}
	}

	if err := fsmutil.Fire(ctx, tr.fsm, EventHeartbeatResumed); err != nil {
		return fmt.Errorf("liveness transition: %w", err)
	}

	m.trackers.delete(dev.ID)
	metrics.DevicesOffline.Dec()

	m.publish(ctx, &model.Event{
		Type:      model.EventDeviceOnline,
		DeviceID:  dev.ID,
		Severity:  model.SeverityInfo,
		Message:   "device heartbeat resumed",
		Timestamp: now,
		Fields:    map[string]any{"emergencyWasApplied": emergencyWasApplied},
	})

	m.logger.Info("Device recovered", "device", dev.ID, "emergencyWasApplied", emergencyWasApplied)
	return nil
}

// applyAction routes a remediation action through the registry's normal
// transition path: mode first so a forced state lands on a MANUAL actuator.
func (m *Monitor) applyAction(ctx context.Context, deviceID string, a remediation.Action) error {
	if a.Mode != nil {
		trig := model.TriggeredByAlert
		if *a.Mode == model.ModeAuto {
			trig = model.TriggeredByAutomation
		}
		if _, err := m.registry.SetMode(ctx, registry.SetModeRequest{
			DeviceID:    deviceID,
			Kind:        a.Kind,
			Desired:     *a.Mode,
			TriggeredBy: trig,
			Reason:      a.Reason,
		}); err != nil {
			return err
		}
	}

	if a.State != nil {
		if _, err := m.registry.SetState(ctx, registry.SetStateRequest{
			DeviceID:    deviceID,
			Kind:        a.Kind,
			Desired:     *a.State,
			TriggeredBy: model.TriggeredByAlert,
			Reason:      a.Reason,
		}); err != nil {
			return err
		}
	}

	return nil
}

func (m *Monitor) publish(ctx context.Context, event *model.Event) {
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()

	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, event); err != nil {
		// Event delivery is best-effort; the state transition already
		// happened and is recorded in the audit log.
		m.logger.Error(err, "Failed to publish event", "type", event.Type, "device", event.DeviceID)
	}
}
