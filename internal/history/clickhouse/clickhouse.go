package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/mcpanel/craftd/internal/event"
)

// Sink exports domain events to ClickHouse using the official Go client.
type Sink struct {
	conn  driver.Conn
	table string
}

func New(addr, table string) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
			Password: "",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &Sink{conn: conn, table: table}, nil
}

// EnsureSchema creates the event table when it does not exist yet.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		type String,
		server_id String,
		occurred_at DateTime64(3),
		old_status String,
		new_status String,
		exit_code Int32,
		player String,
		line String,
		command String
	) ENGINE = MergeTree() ORDER BY (server_id, occurred_at)`, s.table)
	return s.conn.Exec(ctx, query)
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Sink) Send(ctx context.Context, e event.Event) error {
	query := fmt.Sprintf(`INSERT INTO %s (type, server_id, occurred_at, old_status, new_status, exit_code, player, line, command) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)

	err := s.conn.Exec(ctx, query,
		string(e.Type),
		e.ServerID,
		e.OccurredAt,
		e.OldStatus,
		e.NewStatus,
		int32(e.ExitCode),
		e.Player,
		e.Line,
		e.Command,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event into ClickHouse: %w", err)
	}
	return nil
}
