package event

import "time"

// Type identifies a domain event emitted by a supervisor.
type Type string

const (
	TypeStarting        Type = "starting"
	TypeStarted         Type = "started"
	TypeStopping        Type = "stopping"
	TypeStopped         Type = "stopped"
	TypeCrashed         Type = "crashed"
	TypeStatusChanged   Type = "status_changed"
	TypePlayerJoined    Type = "player_joined"
	TypePlayerLeft      Type = "player_left"
	TypeOutputProduced  Type = "output"
	TypeCommandAccepted Type = "command_accepted"
	TypeErrorDetected   Type = "error_detected"
)

// Event is the outward message a supervisor produces. Fields are populated
// per Type; unused fields stay zero and are omitted from JSON. Events carry
// no back-reference to their supervisor: consumers treat them as
// fire-and-forget facts.
type Event struct {
	Type       Type      `json:"type"`
	ServerID   string    `json:"server_id,omitempty"` // tagged by the registry
	OccurredAt time.Time `json:"occurred_at"`

	OldStatus string `json:"old_status,omitempty"` // StatusChanged
	NewStatus string `json:"new_status,omitempty"` // StatusChanged
	ExitCode  int    `json:"exit_code,omitempty"`  // Stopped, Crashed
	Player    string `json:"player,omitempty"`     // PlayerJoined, PlayerLeft
	Line      string `json:"line,omitempty"`       // OutputProduced, ErrorDetected
	Command   string `json:"command,omitempty"`    // CommandAccepted
}

func Starting() Event { return Event{Type: TypeStarting, OccurredAt: time.Now()} }
func Started() Event  { return Event{Type: TypeStarted, OccurredAt: time.Now()} }
func Stopping() Event { return Event{Type: TypeStopping, OccurredAt: time.Now()} }

func Stopped(code int) Event {
	return Event{Type: TypeStopped, ExitCode: code, OccurredAt: time.Now()}
}

func Crashed(code int) Event {
	return Event{Type: TypeCrashed, ExitCode: code, OccurredAt: time.Now()}
}

func StatusChanged(old, new string) Event {
	return Event{Type: TypeStatusChanged, OldStatus: old, NewStatus: new, OccurredAt: time.Now()}
}

func PlayerJoined(name string) Event {
	return Event{Type: TypePlayerJoined, Player: name, OccurredAt: time.Now()}
}

func PlayerLeft(name string) Event {
	return Event{Type: TypePlayerLeft, Player: name, OccurredAt: time.Now()}
}

func OutputProduced(line string) Event {
	return Event{Type: TypeOutputProduced, Line: line, OccurredAt: time.Now()}
}

func CommandAccepted(cmd string) Event {
	return Event{Type: TypeCommandAccepted, Command: cmd, OccurredAt: time.Now()}
}

func ErrorDetected(line string) Event {
	return Event{Type: TypeErrorDetected, Line: line, OccurredAt: time.Now()}
}
