// Package store provides the SQLite-backed persistence adapters: the device
// repository, the append-only audit log, and the fallback command archive
// used when no object store is configured.
package store

import (
	"database/sql"
	"fmt"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/growhub-io/growhub/internal/orchestrator/core"
	"github.com/growhub-io/growhub/pkg/log"
	genericoptions "github.com/growhub-io/growhub/pkg/options"
)

// Store is the SQLite persistence layer. One Store is shared by every
// adapter; the sqlite3 driver serializes writers and the busy timeout keeps
// concurrent callers from failing on transient locks.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// Open opens (or creates) the database and applies the schema.
func Open(opts *genericoptions.SqliteOptions) (*Store, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL", opts.Path, opts.BusyTimeoutMs)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", opts.Path, err)
	}

	s := &Store{db: db, logger: log.WithName("store")}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s.logger.Info("SQLite store ready", "path", opts.Path)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS devices (
  device_id TEXT PRIMARY KEY,
  last_heartbeat INTEGER NOT NULL DEFAULT 0,
  battery_level REAL,
  signal INTEGER,
  uptime_seconds INTEGER
);

CREATE TABLE IF NOT EXISTS actuators (
  device_id TEXT NOT NULL REFERENCES devices(device_id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  state INTEGER NOT NULL DEFAULT 0,
  mode TEXT NOT NULL,
  PRIMARY KEY (device_id, kind)
);

CREATE TABLE IF NOT EXISTS audit_log (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  device_id TEXT NOT NULL,
  actuator TEXT NOT NULL,
  previous_value TEXT NOT NULL,
  new_value TEXT NOT NULL,
  triggered_by TEXT NOT NULL,
  actor_id TEXT NOT NULL DEFAULT '',
  reason TEXT NOT NULL DEFAULT '',
  timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_device_ts ON audit_log(device_id, timestamp);

CREATE TABLE IF NOT EXISTS archived_commands (
  command_id TEXT PRIMARY KEY,
  device_id TEXT NOT NULL,
  actuator TEXT NOT NULL,
  status TEXT NOT NULL,
  payload TEXT NOT NULL,
  archived_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_archived_device ON archived_commands(device_id);
`
	_, err := s.db.Exec(schema)
	return err
}

// Devices returns the device repository view of the store.
func (s *Store) Devices() core.DeviceRepository { return &deviceRepository{s} }

// Audit returns the append-only audit recorder view of the store.
func (s *Store) Audit() core.AuditRecorder { return &auditRecorder{s} }

// Archive returns the fallback command archiver view of the store.
func (s *Store) Archive() core.CommandArchiver { return &commandArchiver{s} }

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
