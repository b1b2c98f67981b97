package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

func TestConsoleWriter_WithDir(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{File: FileConfig{Dir: dir}}
	w := cfg.ConsoleWriter("survival")
	if w == nil {
		t.Fatalf("expected writer when Dir is set")
	}
	_, _ = w.Write([]byte("[12:00:00] [Server thread/INFO]: Done\n"))
	_ = w.Close()
	p := filepath.Join(dir, "survival.console.log")
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("console log not created at %s: %v", p, err)
	}
}

func TestConsoleWriter_DisabledWithoutDir(t *testing.T) {
	cfg := Config{}
	if w := cfg.ConsoleWriter("survival"); w != nil {
		t.Fatalf("expected nil writer when Dir is empty")
	}
}

func TestConsoleWriter_Defaults(t *testing.T) {
	cfg := Config{File: FileConfig{Dir: t.TempDir()}}
	w := cfg.ConsoleWriter("n")
	l, ok := w.(*lj.Logger)
	if !ok {
		t.Fatalf("writer is not lumberjack.Logger")
	}
	if l.MaxSize != 10 || l.MaxBackups != 3 || l.MaxAge != 7 {
		t.Fatalf("unexpected defaults: size=%d backups=%d age=%d", l.MaxSize, l.MaxBackups, l.MaxAge)
	}
	_ = w.Close()
}

func TestConsoleWriter_Overrides(t *testing.T) {
	cfg := Config{File: FileConfig{Dir: t.TempDir(), MaxSizeMB: 1, MaxBackups: 9, MaxAgeDays: 11, Compress: true}}
	w := cfg.ConsoleWriter("n")
	l := w.(*lj.Logger)
	if l.MaxSize != 1 || l.MaxBackups != 9 || l.MaxAge != 11 || !l.Compress {
		t.Fatalf("unexpected overrides: size=%d backups=%d age=%d compress=%t", l.MaxSize, l.MaxBackups, l.MaxAge, l.Compress)
	}
	_ = w.Close()
}

func TestNewSlogger_Levels(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, c := range cases {
		if got := parseLevel(c.in); got != c.want {
			t.Fatalf("parseLevel(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestNewSlogger_Formats(t *testing.T) {
	for _, f := range []string{FormatText, FormatJSON, ""} {
		cfg := Config{Slog: SlogConfig{Level: LevelInfo, Format: f}}
		if l := cfg.NewSlogger(); l == nil {
			t.Fatalf("NewSlogger returned nil for format %q", f)
		}
	}
	cfg := Config{Slog: SlogConfig{Level: LevelDebug, Format: FormatText, Color: true}}
	if l := cfg.NewSlogger(); !l.Enabled(t.Context(), slog.LevelDebug) {
		t.Fatalf("debug level not enabled")
	}
}
