package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mcpanel/craftd/internal/store"
)

// DB implements store.Store backed by PostgreSQL via the pgx stdlib driver.
type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS server_status(
			server_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			pid INTEGER NOT NULL DEFAULT 0,
			last_started TIMESTAMPTZ NULL,
			last_stopped TIMESTAMPTZ NULL,
			total_uptime_secs BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_server_status_status ON server_status(status);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) UpdateStatus(ctx context.Context, serverID, status string, pid int) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO server_status(server_id, status, pid, updated_at)
		VALUES($1, $2, $3, $4)
		ON CONFLICT(server_id) DO UPDATE SET
			status=excluded.status,
			pid=excluded.pid,
			updated_at=excluded.updated_at;`,
		serverID, status, pid, time.Now().UTC())
	return err
}

func (p *DB) RecordStart(ctx context.Context, serverID string, at time.Time) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO server_status(server_id, status, last_started, updated_at)
		VALUES($1, 'starting', $2, $3)
		ON CONFLICT(server_id) DO UPDATE SET
			last_started=excluded.last_started,
			updated_at=excluded.updated_at;`,
		serverID, at.UTC(), time.Now().UTC())
	return err
}

func (p *DB) RecordStop(ctx context.Context, serverID string, at time.Time, uptime time.Duration) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE server_status
		SET last_stopped=$1, total_uptime_secs=total_uptime_secs+$2, updated_at=$3
		WHERE server_id=$4;`,
		at.UTC(), int64(uptime.Seconds()), time.Now().UTC(), serverID)
	return err
}

func (p *DB) GetStatus(ctx context.Context, serverID string) (store.StatusRecord, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT server_id, status, pid, last_started, last_stopped, total_uptime_secs, updated_at
		FROM server_status WHERE server_id=$1;`, serverID)
	var r store.StatusRecord
	err := row.Scan(&r.ServerID, &r.Status, &r.PID, &r.LastStarted, &r.LastStopped, &r.TotalUptimeSecs, &r.UpdatedAt)
	return r, err
}

func (p *DB) ListStatuses(ctx context.Context) ([]store.StatusRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
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
