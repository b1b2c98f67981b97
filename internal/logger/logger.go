package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults (lumberjack semantics).
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Log levels accepted in configuration files.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Output formats for the daemon logger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// SlogConfig controls the daemon's structured logger.
type SlogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Color      bool   `mapstructure:"color"`
	TimeStamps bool   `mapstructure:"timestamps"`
	Source     bool   `mapstructure:"source"`
}

// FileConfig controls per-server console log files. When Dir is empty no
// console files are written.
type FileConfig struct {
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Config combines structured daemon logging with console file logging.
type Config struct {
	Slog SlogConfig `mapstructure:"slog"`
	File FileConfig `mapstructure:"file"`
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewSlogger builds the daemon logger from config. Text format gets ANSI
// level coloring when Color is set; JSON format ignores Color.
func (c Config) NewSlogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(c.Slog.Level),
		AddSource: c.Slog.Source,
	}
	if !c.Slog.TimeStamps {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		}
	}
	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(c.Slog.Format)) {
	case FormatJSON:
		h = slog.NewJSONHandler(os.Stdout, opts)
	default:
		if c.Slog.Color {
			h = NewColorTextHandler(os.Stdout, opts, c.Slog.TimeStamps)
		} else {
			h = slog.NewTextHandler(os.Stdout, opts)
		}
	}
	return slog.New(h)
}

// ConsoleWriter returns a rotating writer for one server's console output,
// or nil when file logging is disabled. The file is Dir/<name>.console.log.
func (c Config) ConsoleWriter(name string) io.WriteCloser {
	if c.File.Dir == "" {
		return nil
	}
	return &lj.Logger{
		Filename:   filepath.Join(c.File.Dir, fmt.Sprintf("%s.console.log", name)),
		MaxSize:    valOr(c.File.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.File.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.File.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.File.Compress,
	}
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
