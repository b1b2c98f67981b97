package client

import "time"

// ServerStatus mirrors the daemon's server snapshot.
type ServerStatus struct {
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

// ConsoleOutput carries recent console lines for one server.
type ConsoleOutput struct {
	ServerID string   `json:"server_id"`
	Lines    []string `json:"lines"`
}

// CommandRequest is the body for the command endpoint.
type CommandRequest struct {
	Command string `json:"command"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
