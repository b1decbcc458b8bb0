package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growhub-io/growhub/internal/orchestrator/core"
	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
)

type recordingAudit struct {
	entries []*model.AuditEntry
}

func (r *recordingAudit) Record(_ context.Context, e *model.AuditEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

type recordingArchive struct {
	commands []*model.Command
}

func (r *recordingArchive) Archive(_ context.Context, c *model.Command) error {
	r.commands = append(r.commands, c)
	return nil
}

func enqueue(t *testing.T, q *Queue, deviceID string, prio model.Priority) *model.Command {
	t.Helper()
	on := true
	cmd, err := q.Enqueue(context.Background(), &model.Command{
		DeviceID:     deviceID,
		Kind:         model.ActuatorWaterPump,
		DesiredState: &on,
		Priority:     prio,
	})
	require.NoError(t, err)
	return cmd
}

// TestPendingFor_PriorityOrdering verifies priority-descending delivery with
// FIFO ordering inside each priority class.
func TestPendingFor_PriorityOrdering(t *testing.T) {
	q := New(&recordingAudit{}, nil)

	low := enqueue(t, q, "dev-1", model.PriorityLow)
	crit := enqueue(t, q, "dev-1", model.PriorityCritical)
	high1 := enqueue(t, q, "dev-1", model.PriorityHigh)
	high2 := enqueue(t, q, "dev-1", model.PriorityHigh)

	got := q.PendingFor(context.Background(), "dev-1")
	require.Len(t, got, 4)
	assert.Equal(t, crit.ID, got[0].ID)
	assert.Equal(t, high1.ID, got[1].ID)
	assert.Equal(t, high2.ID, got[2].ID)
	assert.Equal(t, low.ID, got[3].ID)

	for _, c := range got {
		assert.Equal(t, model.CommandStatusSent, c.Status)
		assert.NotNil(t, c.SentAt)
	}
}

// TestPendingFor_AtMostOnce verifies a second poll does not redeliver
// commands already handed out.
func TestPendingFor_AtMostOnce(t *testing.T) {
	q := New(&recordingAudit{}, nil)
	enqueue(t, q, "dev-1", model.PriorityHigh)

	first := q.PendingFor(context.Background(), "dev-1")
	require.Len(t, first, 1)

	second := q.PendingFor(context.Background(), "dev-1")
	assert.Empty(t, second)
	assert.Zero(t, q.PendingCount("dev-1"))
}

// TestPendingFor_EmptyQueue verifies an empty poll result with no state
// changes for devices with nothing queued.
func TestPendingFor_EmptyQueue(t *testing.T) {
	q := New(&recordingAudit{}, nil)
	assert.Empty(t, q.PendingFor(context.Background(), "dev-unknown"))
}

func TestPendingCount_CountsOnlyPending(t *testing.T) {
	q := New(&recordingAudit{}, nil)
	enqueue(t, q, "dev-1", model.PriorityHigh)
	enqueue(t, q, "dev-1", model.PriorityLow)
	enqueue(t, q, "dev-2", model.PriorityHigh)

	assert.Equal(t, 2, q.PendingCount("dev-1"))

	q.PendingFor(context.Background(), "dev-1")
	assert.Equal(t, 0, q.PendingCount("dev-1"))
	assert.Equal(t, 1, q.PendingCount("dev-2"))
}

// TestAcknowledge_Success verifies a successful ack retires the command and
// hands it to the archiver.
func TestAcknowledge_Success(t *testing.T) {
	archive := &recordingArchive{}
	q := New(&recordingAudit{}, archive)

	cmd := enqueue(t, q, "dev-1", model.PriorityHigh)
	q.PendingFor(context.Background(), "dev-1")

	require.NoError(t, q.Acknowledge(context.Background(), "dev-1", cmd.ID, true, ""))

	require.Len(t, archive.commands, 1)
	assert.Equal(t, model.CommandStatusAcknowledged, archive.commands[0].Status)
	assert.NotNil(t, archive.commands[0].AcknowledgedAt)

	// Terminal commands leave the live queue; re-acking is a not-found.
	err := q.Acknowledge(context.Background(), "dev-1", cmd.ID, false, "late duplicate")
	assert.ErrorIs(t, err, core.ErrCommandNotFound)
}

// TestAcknowledge_RetryThenExhaustion walks a command through its full retry
// budget and verifies the terminal failure is audited and archived.
func TestAcknowledge_RetryThenExhaustion(t *testing.T) {
	audit := &recordingAudit{}
	archive := &recordingArchive{}
	q := New(audit, archive)

	cmd := enqueue(t, q, "dev-1", model.PriorityCritical)
	require.Equal(t, model.DefaultMaxRetries, cmd.MaxRetries)

	ctx := context.Background()
	for attempt := 0; attempt <= model.DefaultMaxRetries; attempt++ {
		got := q.PendingFor(ctx, "dev-1")
		require.Len(t, got, 1, "attempt %d should redeliver the command", attempt)
		require.NoError(t, q.Acknowledge(ctx, "dev-1", cmd.ID, false, "relay stuck"))
	}

	// Retry budget exhausted: nothing left to deliver.
	assert.Empty(t, q.PendingFor(ctx, "dev-1"))

	require.Len(t, archive.commands, 1)
	failed := archive.commands[0]
	assert.Equal(t, model.CommandStatusFailed, failed.Status)
	assert.Equal(t, model.DefaultMaxRetries+1, failed.RetryCount)
	assert.Equal(t, "relay stuck", failed.Error)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, string(model.CommandStatusFailed), audit.entries[0].New)
	assert.Equal(t, model.TriggeredByAutomation, audit.entries[0].TriggeredBy)
}

// TestAcknowledge_UnknownCommand verifies acking a command that was never
// enqueued fails cleanly.
func TestAcknowledge_UnknownCommand(t *testing.T) {
	q := New(&recordingAudit{}, nil)
	err := q.Acknowledge(context.Background(), "dev-1", "no-such-id", true, "")
	assert.ErrorIs(t, err, core.ErrCommandNotFound)
}

// TestEnqueue_Validation verifies enqueue rejects incomplete commands.
func TestEnqueue_Validation(t *testing.T) {
	q := New(&recordingAudit{}, nil)

	_, err := q.Enqueue(context.Background(), &model.Command{Kind: model.ActuatorWaterPump})
	assert.Error(t, err)

	_, err = q.Enqueue(context.Background(), &model.Command{DeviceID: "dev-1", Kind: "Sprinkler"})
	assert.ErrorIs(t, err, core.ErrUnknownActuator)
}

// TestQueues_AreIndependentPerDevice verifies one device's commands never
// leak into another device's poll.
func TestQueues_AreIndependentPerDevice(t *testing.T) {
	q := New(&recordingAudit{}, nil)
	a := enqueue(t, q, "dev-a", model.PriorityHigh)
	b := enqueue(t, q, "dev-b", model.PriorityHigh)

	gotA := q.PendingFor(context.Background(), "dev-a")
	require.Len(t, gotA, 1)
	assert.Equal(t, a.ID, gotA[0].ID)

	gotB := q.PendingFor(context.Background(), "dev-b")
	require.Len(t, gotB, 1)
	assert.Equal(t, b.ID, gotB[0].ID)
}

// TestAcknowledge_RejectsUndeliveredCommand verifies an ack for a command
// still awaiting its first poll is refused: only Sent commands carry an
// outcome the device could actually report.
func TestAcknowledge_RejectsUndeliveredCommand(t *testing.T) {
	q := New(&recordingAudit{}, nil)
	cmd := enqueue(t, q, "dev-1", model.PriorityHigh)

	err := q.Acknowledge(context.Background(), "dev-1", cmd.ID, true, "")
	assert.ErrorIs(t, err, core.ErrCommandNotDelivered)

	// The command stays Pending and is still delivered on the next poll.
	got := q.PendingFor(context.Background(), "dev-1")
	require.Len(t, got, 1)
	assert.Equal(t, cmd.ID, got[0].ID)
}

// TestPendingFor_DeliveryHookObservesEachDelivery verifies the delivery
// hook sees every command a poll hands out, and redeliveries after a
// failed ack are mirrored again.
func TestPendingFor_DeliveryHookObservesEachDelivery(t *testing.T) {
	var mirrored []*model.Command
	q := New(&recordingAudit{}, nil).WithDeliveryHook(func(_ context.Context, cmd *model.Command) {
		mirrored = append(mirrored, cmd)
	})
	ctx := context.Background()

	first := enqueue(t, q, "dev-1", model.PriorityHigh)
	second := enqueue(t, q, "dev-1", model.PriorityLow)

	got := q.PendingFor(ctx, "dev-1")
	require.Len(t, got, 2)
	require.Len(t, mirrored, 2)
	assert.Equal(t, first.ID, mirrored[0].ID)
	assert.Equal(t, second.ID, mirrored[1].ID)
	assert.Equal(t, model.CommandStatusSent, mirrored[0].Status)

	// An empty poll mirrors nothing.
	require.Empty(t, q.PendingFor(ctx, "dev-1"))
	assert.Len(t, mirrored, 2)

	// A failed ack puts the command back; its redelivery is mirrored too.
	require.NoError(t, q.Acknowledge(ctx, "dev-1", first.ID, false, "relay stuck"))
	require.Len(t, q.PendingFor(ctx, "dev-1"), 1)
	require.Len(t, mirrored, 3)
	assert.Equal(t, first.ID, mirrored[2].ID)
}
