package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mcpanel/craftd/internal/store"
)

// DB implements store.Store for SQLite (modernc.org/sqlite driver, CGO-free).
// DSN is a filesystem path to the database file. Use ":memory:" for in-memory.
type DB struct {
	db *sql.DB
}

func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS server_status(
			server_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			pid INTEGER NOT NULL DEFAULT 0,
			last_started TIMESTAMP NULL,
			last_stopped TIMESTAMP NULL,
			total_uptime_secs INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_server_status_status ON server_status(status);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) UpdateStatus(ctx context.Context, serverID, status string, pid int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO server_status(server_id, status, pid, updated_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(server_id) DO UPDATE SET
			status=excluded.status,
			pid=excluded.pid,
			updated_at=excluded.updated_at;`,
		serverID, status, pid, time.Now().UTC())
	return err
}

func (s *DB) RecordStart(ctx context.Context, serverID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO server_status(server_id, status, last_started, updated_at)
		VALUES(?, 'starting', ?, ?)
		ON CONFLICT(server_id) DO UPDATE SET
			last_started=excluded.last_started,
			updated_at=excluded.updated_at;`,
		serverID, at.UTC(), time.Now().UTC())
	return err
}

func (s *DB) RecordStop(ctx context.Context, serverID string, at time.Time, uptime time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE server_status
		SET last_stopped=?, total_uptime_secs=total_uptime_secs+?, updated_at=?
		WHERE server_id=?;`,
		at.UTC(), int64(uptime.Seconds()), time.Now().UTC(), serverID)
	return err
}

func (s *DB) GetStatus(ctx context.Context, serverID string) (store.StatusRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT server_id, status, pid, last_started, last_stopped, total_uptime_secs, updated_at
		FROM server_status WHERE server_id=?;`, serverID)
	var r store.StatusRecord
	err := row.Scan(&r.ServerID, &r.Status, &r.PID, &r.LastStarted, &r.LastStopped, &r.TotalUptimeSecs, &r.UpdatedAt)
	return r, err
}

func (s *DB) ListStatuses(ctx context.Context) ([]store.StatusRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT server_id, status, pid, last_started, last_stopped, total_uptime_secs, updated_at
		FROM server_status ORDER BY server_id;`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make([]store.StatusRecord, 0)
	for rows.Next() {
		var r store.StatusRecord
		if err := rows.Scan(&r.ServerID, &r.Status, &r.PID, &r.LastStarted, &r.LastStopped, &r.TotalUptimeSecs, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
