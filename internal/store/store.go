package store

import (
	"context"
	"database/sql"
	"time"
)

// StatusRecord is the persisted view of one server's lifecycle. The core
// writes it on every transition; the request layer reads it for listings
// that must survive daemon restarts.
type StatusRecord struct {
	ServerID    string
	Status      string
	PID         int
	LastStarted sql.NullTime
	LastStopped sql.NullTime
	// TotalUptimeSecs accumulates across runs; advanced on every
	// running-to-non-running transition.
	TotalUptimeSecs int64
	UpdatedAt       time.Time
}

// Store is the persistence collaborator boundary. Implementations must be
// safe for concurrent use.
type Store interface {
	EnsureSchema(ctx context.Context) error
	// UpdateStatus upserts the current status and PID for a server.
	UpdateStatus(ctx context.Context, serverID, status string, pid int) error
	// RecordStart stamps the start time of a new run.
	RecordStart(ctx context.Context, serverID string, at time.Time) error
	// RecordStop stamps the stop time and accumulates uptime for the run
	// that just ended.
	RecordStop(ctx context.Context, serverID string, at time.Time, uptime time.Duration) error
	GetStatus(ctx context.Context, serverID string) (StatusRecord, error)
	ListStatuses(ctx context.Context) ([]StatusRecord, error)
	Close() error
}
