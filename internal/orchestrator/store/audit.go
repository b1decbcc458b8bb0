package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
)

type auditRecorder struct {
	s *Store
}

// Record appends one transition entry. There is deliberately no update or
// delete path anywhere in this package for audit_log rows.
func (r *auditRecorder) Record(ctx context.Context, entry *model.AuditEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := r.s.db.ExecContext(ctx, `
INSERT INTO audit_log(device_id, actuator, previous_value, new_value, triggered_by, actor_id, reason, timestamp)
VALUES(?,?,?,?,?,?,?,?)`,
		entry.DeviceID, entry.Actuator, entry.Previous, entry.New,
		string(entry.TriggeredBy), entry.ActorID, entry.Reason, ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append audit entry for %s: %w", entry.DeviceID, err)
	}
	return nil
}

// Entries returns a device's audit trail, newest first.
func (s *Store) Entries(ctx context.Context, deviceID string, limit int) ([]*model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT device_id, actuator, previous_value, new_value, triggered_by, actor_id, reason, timestamp
FROM audit_log WHERE device_id=? ORDER BY timestamp DESC, id DESC LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit trail for %s: %w", deviceID, err)
	}
	defer rows.Close()

	var out []*model.AuditEntry
	for rows.Next() {
		var (
			e  model.AuditEntry
			by string
			ts int64
		)
		if err := rows.Scan(&e.DeviceID, &e.Actuator, &e.Previous, &e.New, &by, &e.ActorID, &e.Reason, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		e.TriggeredBy = model.TriggeredBy(by)
		e.Timestamp = time.UnixMilli(ts)
		out = append(out, &e)
	}
	return out, rows.Err()
}

type commandArchiver struct {
	s *Store
}

// Archive stores the full terminal command as JSON. The live queue has
// already dropped the record, so a failure here loses only history.
func (a *commandArchiver) Archive(ctx context.Context, cmd *model.Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode command %s: %w", cmd.ID, err)
	}

	_, err = a.s.db.ExecContext(ctx, `
INSERT INTO archived_commands(command_id, device_id, actuator, status, payload, archived_at)
VALUES(?,?,?,?,?,?)
ON CONFLICT(command_id) DO NOTHING`,
		cmd.ID, cmd.DeviceID, string(cmd.Kind), string(cmd.Status), string(payload), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to archive command %s: %w", cmd.ID, err)
	}
	return nil
}
