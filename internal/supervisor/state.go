package supervisor

import (
	"errors"
	"time"
)

// Status is the lifecycle state of one supervised server.
//
// State Machine:
// Stopped -> Starting -> Running -> Stopping -> Stopped
// with Crashed reachable from Starting/Running/Stopping on abnormal exit,
// and Crashed -> Starting under the bounded auto-restart policy.
type Status int32

const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
	StatusCrashed
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	case StatusCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidState rejects a lifecycle operation from a state that
	// forbids it, e.g. start while already running. No mutation occurs.
	ErrInvalidState = errors.New("operation not valid in current state")

	// ErrCommandRejected rejects executeCommand while the server is not
	// running. Recovered locally by callers; never escalates.
	ErrCommandRejected = errors.New("command rejected: server not running")

	// ErrDestroyed rejects any use of a supervisor after Destroy.
	ErrDestroyed = errors.New("supervisor destroyed")
)

// Snapshot is the on-demand derived view of a supervised server. It is
// recomputed per call and never persisted.
type Snapshot struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	Players         []string  `json:"players"`
	MaxPlayers      int       `json:"max_players"`
	Version         string    `json:"version"`
	TPS             float64   `json:"tps"`
	PID             int       `json:"pid,omitempty"`
	StartedAt       time.Time `json:"started_at,omitzero"`
	UptimeSeconds   int64     `json:"uptime_seconds"`
	RestartAttempts int       `json:"restart_attempts"`
}

// Defaults for runtime values learned from console output.
const (
	DefaultMaxPlayers = 20
	DefaultVersion    = "Unknown"
	DefaultTPS        = 20.0
)
