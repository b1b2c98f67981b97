package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mcpanel/craftd/internal/logger"
	"github.com/mcpanel/craftd/internal/proc"
	"github.com/mcpanel/craftd/internal/tls"
)

// DaemonConfig holds daemon-wide settings from the [daemon] table.
type DaemonConfig struct {
	Listen   string      `mapstructure:"listen"`
	BasePath string      `mapstructure:"base_path"`
	StoreDSN string      `mapstructure:"store_dsn"`
	TLS      *tls.Config `mapstructure:"tls"`
}

// HistoryConfig selects an optional event history sink.
// Type is "sqlite" or "clickhouse"; empty disables history.
type HistoryConfig struct {
	Type  string `mapstructure:"type"`
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// ServerConfig is one [[servers]] entry.
type ServerConfig struct {
	ID            string        `mapstructure:"id"`
	Name          string        `mapstructure:"name"`
	Dir           string        `mapstructure:"dir"`
	Executable    string        `mapstructure:"executable"`
	MinMemory     string        `mapstructure:"min_memory"`
	MaxMemory     string        `mapstructure:"max_memory"`
	ExtraArgs     []string      `mapstructure:"extra_args"`
	Env           []string      `mapstructure:"env"`
	AutoRestart   bool          `mapstructure:"autorestart"`
	MaxRestarts   int           `mapstructure:"max_restarts"`
	RestartDelay  time.Duration `mapstructure:"restart_delay"`
	StopTimeout   time.Duration `mapstructure:"stop_timeout"`
	ConsoleBuffer int           `mapstructure:"console_buffer"`
}

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Daemon  DaemonConfig   `mapstructure:"daemon"`
	Log     logger.Config  `mapstructure:"log"`
	History HistoryConfig  `mapstructure:"history"`
	Servers []ServerConfig `mapstructure:"servers"`
}

// Load parses a TOML config file and validates it.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, err
	}
	if fc.Daemon.Listen == "" {
		fc.Daemon.Listen = "127.0.0.1:8970"
	}
	if err := fc.validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

func (fc *FileConfig) validate() error {
	seen := make(map[string]struct{}, len(fc.Servers))
	for i := range fc.Servers {
		sc := &fc.Servers[i]
		if sc.ID == "" {
			return fmt.Errorf("server at index %d requires id", i)
		}
		if strings.ContainsAny(sc.ID, " /\\") {
			return fmt.Errorf("server id %q must not contain spaces or slashes", sc.ID)
		}
		if _, dup := seen[sc.ID]; dup {
			return fmt.Errorf("duplicate server id %q", sc.ID)
		}
		seen[sc.ID] = struct{}{}
		if sc.Dir == "" {
			return fmt.Errorf("server %s requires dir", sc.ID)
		}
		if sc.Executable == "" {
			return fmt.Errorf("server %s requires executable", sc.ID)
		}
		if sc.MaxRestarts < 0 {
			return fmt.Errorf("server %s: max_restarts must not be negative", sc.ID)
		}
	}
	switch strings.ToLower(strings.TrimSpace(fc.History.Type)) {
	case "", "sqlite", "clickhouse":
	default:
		return fmt.Errorf("unknown history type %q", fc.History.Type)
	}
	return nil
}

// Identities converts the [[servers]] entries to supervisor identities.
func (fc *FileConfig) Identities() []proc.Identity {
	out := make([]proc.Identity, 0, len(fc.Servers))
	for _, sc := range fc.Servers {
		name := sc.Name
		if name == "" {
			name = sc.ID
		}
		out = append(out, proc.Identity{
			ID:            sc.ID,
			Name:          name,
			Dir:           sc.Dir,
			Executable:    sc.Executable,
			MinMemory:     sc.MinMemory,
			MaxMemory:     sc.MaxMemory,
			ExtraArgs:     sc.ExtraArgs,
			Env:           sc.Env,
			AutoRestart:   sc.AutoRestart,
			MaxRestarts:   sc.MaxRestarts,
			RestartDelay:  sc.RestartDelay,
			StopTimeout:   sc.StopTimeout,
			ConsoleBuffer: sc.ConsoleBuffer,
		})
	}
	return out
}
