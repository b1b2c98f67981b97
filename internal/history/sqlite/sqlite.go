package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mcpanel/craftd/internal/event"
)

// Sink records domain events in a local SQLite table. The small default for
// standalone deployments that want player/crash history without running
// ClickHouse.
type Sink struct {
	db *sql.DB
}

func New(path string) (*Sink, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &Sink{db: d}, nil
}

func (s *Sink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS server_events(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			server_id TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL,
			old_status TEXT,
			new_status TEXT,
			exit_code INTEGER,
			player TEXT,
			line TEXT,
			command TEXT
		);`)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_server_events_server ON server_events(server_id, occurred_at);`)
	return err
}

func (s *Sink) Close() error { return s.db.Close() }

func (s *Sink) Send(ctx context.Context, e event.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO server_events(type, server_id, occurred_at, old_status, new_status, exit_code, player, line, command)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		string(e.Type), e.ServerID, e.OccurredAt.UTC(), e.OldStatus, e.NewStatus, e.ExitCode, e.Player, e.Line, e.Command)
	return err
}

// CountByType returns event counts per type for one server since a cutoff;
// the statistics surface uses it for crash and join/leave summaries.
func (s *Sink) CountByType(ctx context.Context, serverID string, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, COUNT(*) FROM server_events
		WHERE server_id=? AND occurred_at >= ?
		GROUP BY type;`, serverID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, rows.Err()
}
