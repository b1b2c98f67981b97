package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "craftd.toml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `
[daemon]
listen = "127.0.0.1:9001"
store_dsn = "sqlite:///tmp/craftd.db"

[log.slog]
level = "debug"
format = "text"
color = true

[log.file]
dir = "/tmp/craftd-logs"

[history]
type = "sqlite"
dsn = "/tmp/craftd-history.db"

[[servers]]
id = "survival"
name = "Survival World"
dir = "/srv/mc/survival"
executable = "server.jar"
min_memory = "1G"
max_memory = "4G"
extra_args = ["-XX:+UseG1GC"]
autorestart = true
max_restarts = 5
restart_delay = "2s"
stop_timeout = "45s"
console_buffer = 500

[[servers]]
id = "creative"
dir = "/srv/mc/creative"
executable = "server.jar"
`)
	fc, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fc.Daemon.Listen != "127.0.0.1:9001" {
		t.Fatalf("listen = %q", fc.Daemon.Listen)
	}
	if fc.Log.Slog.Level != "debug" || !fc.Log.Slog.Color {
		t.Fatalf("unexpected slog config: %+v", fc.Log.Slog)
	}
	if fc.History.Type != "sqlite" {
		t.Fatalf("history type = %q", fc.History.Type)
	}
	ids := fc.Identities()
	if len(ids) != 2 {
		t.Fatalf("expected 2 identities, got %d", len(ids))
	}
	s := ids[0]
	if s.ID != "survival" || s.Name != "Survival World" {
		t.Fatalf("unexpected identity: %+v", s)
	}
	if s.MaxMemory != "4G" || len(s.ExtraArgs) != 1 {
		t.Fatalf("jvm settings not parsed: %+v", s)
	}
	if s.RestartDelay != 2*time.Second || s.StopTimeout != 45*time.Second {
		t.Fatalf("durations not parsed: delay=%v timeout=%v", s.RestartDelay, s.StopTimeout)
	}
	if s.ConsoleBuffer != 500 || s.MaxRestarts != 5 || !s.AutoRestart {
		t.Fatalf("restart policy not parsed: %+v", s)
	}
	// name defaults to id when omitted
	if ids[1].Name != "creative" {
		t.Fatalf("name default = %q", ids[1].Name)
	}
}

func TestLoad_DefaultListen(t *testing.T) {
	p := writeConfig(t, `
[[servers]]
id = "a"
dir = "/srv/a"
executable = "server.jar"
`)
	fc, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fc.Daemon.Listen != "127.0.0.1:8970" {
		t.Fatalf("default listen = %q", fc.Daemon.Listen)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing id", "[[servers]]\ndir = \"/srv/a\"\nexecutable = \"server.jar\"\n"},
		{"missing dir", "[[servers]]\nid = \"a\"\nexecutable = \"server.jar\"\n"},
		{"missing executable", "[[servers]]\nid = \"a\"\ndir = \"/srv/a\"\n"},
		{"duplicate id", `
[[servers]]
id = "a"
dir = "/srv/a"
executable = "server.jar"
[[servers]]
id = "a"
dir = "/srv/b"
executable = "server.jar"
`},
		{"id with slash", "[[servers]]\nid = \"a/b\"\ndir = \"/srv/a\"\nexecutable = \"server.jar\"\n"},
		{"negative restarts", "[[servers]]\nid = \"a\"\ndir = \"/srv/a\"\nexecutable = \"server.jar\"\nmax_restarts = -1\n"},
		{"bad history type", "[history]\ntype = \"kafka\"\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, c.body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
