package proc

import (
	"path/filepath"
	"time"
)

// Identity is the immutable launch description of one game server. It is
// built from external configuration at supervisor construction and never
// mutated afterwards.
type Identity struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Dir        string   `json:"dir"`        // filesystem root / working directory
	Executable string   `json:"executable"` // jar name or script, relative to Dir unless absolute
	MinMemory  string   `json:"min_memory"` // JVM -Xms value, e.g. "1G"
	MaxMemory  string   `json:"max_memory"` // JVM -Xmx value
	ExtraArgs  []string `json:"extra_args"` // additional JVM arguments
	Env        []string `json:"env"`        // extra KEY=VALUE pairs

	AutoRestart   bool          `json:"auto_restart"`
	MaxRestarts   int           `json:"max_restarts"`   // bounded crash-restart attempts (default 3)
	RestartDelay  time.Duration `json:"restart_delay"`  // wait before a crash restart (default 5s)
	StopTimeout   time.Duration `json:"stop_timeout"`   // graceful stop escalation window (default 30s)
	ConsoleBuffer int           `json:"console_buffer"` // ring capacity (default 1000)
}

// Defaults for unset policy knobs.
const (
	DefaultMaxRestarts  = 3
	DefaultRestartDelay = 5 * time.Second
	DefaultStopTimeout  = 30 * time.Second
)

// ExecutablePath resolves the executable relative to the server directory.
func (id Identity) ExecutablePath() string {
	if filepath.IsAbs(id.Executable) {
		return id.Executable
	}
	return filepath.Join(id.Dir, id.Executable)
}

// MaxRestartsOrDefault returns the configured attempt bound, or the default.
func (id Identity) MaxRestartsOrDefault() int {
	if id.MaxRestarts > 0 {
		return id.MaxRestarts
	}
	return DefaultMaxRestarts
}

func (id Identity) RestartDelayOrDefault() time.Duration {
	if id.RestartDelay > 0 {
		return id.RestartDelay
	}
	return DefaultRestartDelay
}

func (id Identity) StopTimeoutOrDefault() time.Duration {
	if id.StopTimeout > 0 {
		return id.StopTimeout
	}
	return DefaultStopTimeout
}
