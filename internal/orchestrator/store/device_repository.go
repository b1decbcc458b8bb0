package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/growhub-io/growhub/internal/orchestrator/core"
	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
)

type deviceRepository struct {
	s *Store
}

func (r *deviceRepository) Get(ctx context.Context, id string) (*model.Device, error) {
	row := r.s.db.QueryRowContext(ctx, `
SELECT device_id, last_heartbeat, battery_level, signal, uptime_seconds
FROM devices WHERE device_id = ?`, id)

	dev, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device %s: %w", id, core.ErrDeviceNotFound)
		}
		return nil, fmt.Errorf("failed to load device %s: %w", id, err)
	}

	if err := r.loadActuators(ctx, dev); err != nil {
		return nil, err
	}
	return dev, nil
}

func (r *deviceRepository) List(ctx context.Context) ([]*model.Device, error) {
	rows, err := r.s.db.QueryContext(ctx, `
SELECT device_id, last_heartbeat, battery_level, signal, uptime_seconds
FROM devices ORDER BY device_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var out []*model.Device
	for rows.Next() {
		dev, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		out = append(out, dev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, dev := range out {
		if err := r.loadActuators(ctx, dev); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *deviceRepository) Create(ctx context.Context, device *model.Device) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO devices(device_id, last_heartbeat, battery_level, signal, uptime_seconds)
VALUES(?,?,?,?,?)`,
		device.ID, device.LastHeartbeat.UnixMilli(), device.BatteryLevel, device.Signal, device.UptimeSeconds); err != nil {
		return fmt.Errorf("failed to insert device %s: %w", device.ID, err)
	}

	for _, act := range device.Actuators {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO actuators(device_id, kind, state, mode) VALUES(?,?,?,?)`,
			device.ID, string(act.Kind), boolToInt(act.State), string(act.Mode)); err != nil {
			return fmt.Errorf("failed to insert actuator %s/%s: %w", device.ID, act.Kind, err)
		}
	}

	return tx.Commit()
}

func (r *deviceRepository) UpdateHeartbeat(ctx context.Context, device *model.Device) error {
	res, err := r.s.db.ExecContext(ctx, `
UPDATE devices SET last_heartbeat=?, battery_level=?, signal=?, uptime_seconds=?
WHERE device_id=?`,
		device.LastHeartbeat.UnixMilli(), device.BatteryLevel, device.Signal, device.UptimeSeconds, device.ID)
	if err != nil {
		return fmt.Errorf("failed to update heartbeat for %s: %w", device.ID, err)
	}
	return requireRow(res, device.ID)
}

func (r *deviceRepository) UpdateActuator(ctx context.Context, deviceID string, actuator *model.Actuator) error {
	res, err := r.s.db.ExecContext(ctx, `
UPDATE actuators SET state=?, mode=? WHERE device_id=? AND kind=?`,
		boolToInt(actuator.State), string(actuator.Mode), deviceID, string(actuator.Kind))
	if err != nil {
		return fmt.Errorf("failed to update actuator %s/%s: %w", deviceID, actuator.Kind, err)
	}
	return requireRow(res, deviceID)
}

func (r *deviceRepository) loadActuators(ctx context.Context, dev *model.Device) error {
	rows, err := r.s.db.QueryContext(ctx, `
SELECT kind, state, mode FROM actuators WHERE device_id = ?`, dev.ID)
	if err != nil {
		return fmt.Errorf("failed to load actuators for %s: %w", dev.ID, err)
	}
	defer rows.Close()

	dev.Actuators = make(map[model.ActuatorKind]*model.Actuator, 3)
	for rows.Next() {
		var (
			kind  string
			state int
			mode  string
		)
		if err := rows.Scan(&kind, &state, &mode); err != nil {
			return fmt.Errorf("failed to scan actuator row: %w", err)
		}
		k := model.ActuatorKind(kind)
		dev.Actuators[k] = &model.Actuator{
			Kind:  k,
			State: state == 1,
			Mode:  model.Mode(mode),
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*model.Device, error) {
	var (
		dev           model.Device
		lastHeartbeat int64
		battery       sql.NullFloat64
		signal        sql.NullInt64
		uptime        sql.NullInt64
	)
	if err := row.Scan(&dev.ID, &lastHeartbeat, &battery, &signal, &uptime); err != nil {
		return nil, err
	}

	dev.LastHeartbeat = time.UnixMilli(lastHeartbeat)
	if battery.Valid {
		dev.BatteryLevel = &battery.Float64
	}
	if signal.Valid {
		v := int(signal.Int64)
		dev.Signal = &v
	}
	if uptime.Valid {
		dev.UptimeSeconds = &uptime.Int64
	}
	return &dev, nil
}

func requireRow(res sql.Result, deviceID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("device %s: %w", deviceID, core.ErrDeviceNotFound)
	}
	return nil
}
