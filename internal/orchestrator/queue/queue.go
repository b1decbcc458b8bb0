package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/growhub-io/growhub/internal/orchestrator/core"
	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
	"github.com/growhub-io/growhub/internal/pkg/metrics"
	"github.com/growhub-io/growhub/pkg/log"
)

// Queue holds each device's pending commands and drives the
// Pending -> Sent -> Acknowledged | Failed lifecycle. Delivery is
// at-most-once per poll: PendingFor atomically marks everything it returns
// as Sent, so two concurrent polls can never both receive the same command.
// DeliveryHook observes every command PendingFor hands to a polling device.
type DeliveryHook func(ctx context.Context, cmd *model.Command)

type Queue struct {
	audit     core.AuditRecorder
	archiver  core.CommandArchiver
	onDeliver DeliveryHook
	logger    log.Logger
	now       func() time.Time

	seq atomic.Uint64

	mu      sync.RWMutex
	devices map[string]*deviceQueue
}

// deviceQueue serializes all queue operations for one device without
// blocking operations on any other device.
type deviceQueue struct {
	mu       sync.Mutex
	commands []*model.Command
}

// New creates a command queue. The archiver receives every command that
// reaches a terminal status; terminal commands do not stay in the live queue.
func New(audit core.AuditRecorder, archiver core.CommandArchiver) *Queue {
	return &Queue{
		audit:    audit,
		archiver: archiver,
		logger:   log.WithName("queue"),
		now:      time.Now,
		devices:  make(map[string]*deviceQueue),
	}
}

// WithClock overrides the queue's time source. Test hook.
func (q *Queue) WithClock(now func() time.Time) *Queue {
	q.now = now
	return q
}

// WithDeliveryHook registers fn to run, outside the queue lock, for each
// command a poll marks Sent. Used to mirror deliveries onto the MQTT
// observability feed.
func (q *Queue) WithDeliveryHook(fn DeliveryHook) *Queue {
	q.onDeliver = fn
	return q
}

func (q *Queue) forDevice(deviceID string) *deviceQueue {
	q.mu.RLock()
	dq, ok := q.devices[deviceID]
	q.mu.RUnlock()
	if ok {
		return dq
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if dq, ok = q.devices[deviceID]; ok {
		return dq
	}
	dq = &deviceQueue{}
	q.devices[deviceID] = dq
	return dq
}

// Enqueue appends a command for the device with status Pending, assigning
// its ID, sequence number, and timestamps. The passed command's DeviceID,
// Kind, payload, and Priority must be set; everything else is owned here.
func (q *Queue) Enqueue(ctx context.Context, cmd *model.Command) (*model.Command, error) {
	if cmd.DeviceID == "" {
		return nil, fmt.Errorf("enqueue: device id is required")
	}
	if !cmd.Kind.Valid() {
		return nil, fmt.Errorf("enqueue: %w: %q", core.ErrUnknownActuator, cmd.Kind)
	}

	cmd.ID = uuid.NewString()
	cmd.Seq = q.seq.Add(1)
	cmd.Status = model.CommandStatusPending
	cmd.CreatedAt = q.now()
	if cmd.MaxRetries == 0 {
		cmd.MaxRetries = model.DefaultMaxRetries
	}

	dq := q.forDevice(cmd.DeviceID)
	dq.mu.Lock()
	dq.commands = append(dq.commands, cmd)
	dq.mu.Unlock()

	metrics.CommandsEnqueuedTotal.WithLabelValues(string(cmd.Priority)).Inc()
	q.logger.Debug("Command enqueued",
		"device", cmd.DeviceID, "command", cmd.ID, "actuator", cmd.Kind, "priority", cmd.Priority)

	out := *cmd
	return &out, nil
}

// PendingFor returns the device's Pending commands ordered by priority
// descending with FIFO tiebreak, marking each returned command Sent. This is
// the delivery point of the poll transport; callers must treat the result as
// at-most-once delivered.
func (q *Queue) PendingFor(ctx context.Context, deviceID string) []*model.Command {
	dq := q.forDevice(deviceID)
	dq.mu.Lock()

	var pending []*model.Command
	for _, c := range dq.commands {
		if c.Status == model.CommandStatusPending {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		dq.mu.Unlock()
		return nil
	}

	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Priority.Rank() != pending[j].Priority.Rank() {
			return pending[i].Priority.Rank() > pending[j].Priority.Rank()
		}
		return pending[i].Seq < pending[j].Seq
	})

	sentAt := q.now()
	out := make([]*model.Command, 0, len(pending))
	for _, c := range pending {
		c.Status = model.CommandStatusSent
		t := sentAt
		c.SentAt = &t
		cp := *c
		out = append(out, &cp)
	}
	dq.mu.Unlock()

	metrics.CommandsDeliveredTotal.Add(float64(len(out)))

	// The mirror runs on copies, outside the lock, so a slow broker never
	// stalls enqueues for this device.
	if q.onDeliver != nil {
		for _, c := range out {
			q.onDeliver(ctx, c)
		}
	}
	return out
}

// PendingCount reports how many commands are awaiting delivery for a device.
func (q *Queue) PendingCount(deviceID string) int {
	dq := q.forDevice(deviceID)
	dq.mu.Lock()
	defer dq.mu.Unlock()

	n := 0
	for _, c := range dq.commands {
		if c.Status == model.CommandStatusPending {
			n++
		}
	}
	return n
}

// Acknowledge records the device-reported outcome of a delivered command.
// Only a Sent command can be acknowledged; an ack for one still Pending
// yields ErrCommandNotDelivered. On success the command becomes
// Acknowledged. On failure it returns to Pending for redelivery until the
// retry budget is exhausted, then becomes Failed. Terminal commands are
// archived and removed, so a second acknowledgment of the same command
// yields ErrCommandNotFound.
func (q *Queue) Acknowledge(ctx context.Context, deviceID, commandID string, success bool, errMsg string) error {
	dq := q.forDevice(deviceID)
	dq.mu.Lock()

	idx := -1
	for i, c := range dq.commands {
		if c.ID == commandID {
			idx = i
			break
		}
	}
	if idx == -1 {
		dq.mu.Unlock()
		return fmt.Errorf("acknowledge %s: %w", commandID, core.ErrCommandNotFound)
	}

	cmd := dq.commands[idx]
	now := q.now()

	// Only delivered commands can be acknowledged; a Pending command was
	// never handed to the device, so an ack for it is a protocol error.
	if cmd.Status != model.CommandStatusSent {
		dq.mu.Unlock()
		return fmt.Errorf("acknowledge %s: %w", commandID, core.ErrCommandNotDelivered)
	}

	if success {
		cmd.Status = model.CommandStatusAcknowledged
		cmd.AcknowledgedAt = &now
		dq.commands = append(dq.commands[:idx], dq.commands[idx+1:]...)
		dq.mu.Unlock()

		q.retire(ctx, cmd)
		return nil
	}

	cmd.RetryCount++
	cmd.Error = errMsg

	if cmd.RetryCount <= cmd.MaxRetries {
		// Explicit retry: back to Pending for the next poll.
		cmd.Status = model.CommandStatusPending
		dq.mu.Unlock()
		q.logger.Info("Command failed, scheduled for redelivery",
			"device", deviceID, "command", commandID, "retry", cmd.RetryCount, "error", errMsg)
		return nil
	}

	cmd.Status = model.CommandStatusFailed
	cmd.AcknowledgedAt = &now
	dq.commands = append(dq.commands[:idx], dq.commands[idx+1:]...)
	dq.mu.Unlock()

	q.logger.Warn("Command failed permanently, retries exhausted",
		"device", deviceID, "command", commandID, "error", errMsg)

	// Surface the delivery failure to the audit log. A failed delivery is
	// not fatal to the queue or the sweep.
	if err := q.audit.Record(ctx, &model.AuditEntry{
		DeviceID:    deviceID,
		Actuator:    string(cmd.Kind),
		Previous:    string(model.CommandStatusSent),
		New:         string(model.CommandStatusFailed),
		TriggeredBy: model.TriggeredByAutomation,
		Reason:      fmt.Sprintf("command delivery failed after %d retries: %s", cmd.MaxRetries, errMsg),
		Timestamp:   now,
	}); err != nil {
		q.logger.Error(err, "Failed to record delivery failure", "device", deviceID, "command", commandID)
	}

	q.retire(ctx, cmd)
	return nil
}

// retire hands a terminal command to the archiver.
func (q *Queue) retire(ctx context.Context, cmd *model.Command) {
	metrics.CommandsTerminalTotal.WithLabelValues(string(cmd.Status)).Inc()

	if q.archiver == nil {
		return
	}
	if err := q.archiver.Archive(ctx, cmd); err != nil {
		q.logger.Error(err, "Failed to archive terminal command",
			"device", cmd.DeviceID, "command", cmd.ID, "status", cmd.Status)
	}
}
