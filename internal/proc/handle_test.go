//go:build !windows

package proc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// writeScript drops an executable shell script fixture into dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return p
}

type collector struct {
	mu     sync.Mutex
	chunks []string
	exit   chan int
}

func newCollector() *collector {
	return &collector{exit: make(chan int, 1)}
}

func (c *collector) callbacks() Callbacks {
	return Callbacks{
		OnOutput: func(chunk string) {
			c.mu.Lock()
			c.chunks = append(c.chunks, chunk)
			c.mu.Unlock()
		},
		OnExit: func(code int) { c.exit <- code },
	}
}

func (c *collector) output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.chunks, "")
}

func (c *collector) waitExit(t *testing.T) int {
	t.Helper()
	select {
	case code := <-c.exit:
		return code
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout waiting for exit")
		return 0
	}
}

func TestSpawn_MissingDir(t *testing.T) {
	_, err := Spawn(Identity{ID: "x", Dir: "/nonexistent-craftd-test", Executable: "server.jar"}, Callbacks{})
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("err = %v", err)
	}
}

func TestSpawn_MissingExecutable(t *testing.T) {
	dir := t.TempDir()
	_, err := Spawn(Identity{ID: "x", Dir: dir, Executable: "server.jar"}, Callbacks{})
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("err = %v", err)
	}
}

func TestSpawn_OutputAndCleanExit(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "run.sh", `echo "hello from server"`)
	c := newCollector()
	h, err := Spawn(Identity{ID: "x", Dir: dir, Executable: "run.sh"}, c.callbacks())
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if h.PID() <= 0 {
		t.Fatalf("pid = %d", h.PID())
	}
	if code := c.waitExit(t); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(c.output(), "hello from server") {
		t.Fatalf("output = %q", c.output())
	}
	if !h.Exited() {
		t.Fatalf("handle not marked exited")
	}
}

func TestSpawn_NonZeroExit(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "run.sh", "exit 7")
	c := newCollector()
	if _, err := Spawn(Identity{ID: "x", Dir: dir, Executable: "run.sh"}, c.callbacks()); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if code := c.waitExit(t); code != 7 {
		t.Fatalf("exit code = %d", code)
	}
}

func TestSpawn_StderrCaptured(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "run.sh", `echo "boom" >&2`)
	c := newCollector()
	if _, err := Spawn(Identity{ID: "x", Dir: dir, Executable: "run.sh"}, c.callbacks()); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	c.waitExit(t)
	if !strings.Contains(c.output(), "boom") {
		t.Fatalf("stderr missing: %q", c.output())
	}
}

func TestWriteLine_ReachesStdin(t *testing.T) {
	dir := t.TempDir()
	// echoes back each stdin line, exits on "stop"
	writeScript(t, dir, "run.sh", `while read line; do
  echo "got: $line"
  [ "$line" = "stop" ] && exit 0
done`)
	c := newCollector()
	h, err := Spawn(Identity{ID: "x", Dir: dir, Executable: "run.sh"}, c.callbacks())
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := h.WriteLine("say hi"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if err := h.WriteLine("stop"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if code := c.waitExit(t); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	out := c.output()
	if !strings.Contains(out, "got: say hi") || !strings.Contains(out, "got: stop") {
		t.Fatalf("output = %q", out)
	}
	if err := h.WriteLine("after"); !errors.Is(err, ErrProcessExited) {
		t.Fatalf("WriteLine after exit = %v", err)
	}
}

func TestSignal_GracefulTerm(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "run.sh", "sleep 30")
	c := newCollector()
	h, err := Spawn(Identity{ID: "x", Dir: dir, Executable: "run.sh"}, c.callbacks())
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	h.Signal(true)
	if code := c.waitExit(t); code != 128+15 {
		t.Fatalf("exit code = %d, want 143", code)
	}
}

func TestSignal_ForcefulKill(t *testing.T) {
	dir := t.TempDir()
	// trap TERM so only KILL can end it
	writeScript(t, dir, "run.sh", `trap '' TERM
sleep 30 &
wait`)
	c := newCollector()
	h, err := Spawn(Identity{ID: "x", Dir: dir, Executable: "run.sh"}, c.callbacks())
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	h.Signal(false)
	if code := c.waitExit(t); code != 128+9 {
		t.Fatalf("exit code = %d, want 137", code)
	}
}

func TestExitCode_NilError(t *testing.T) {
	if exitCode(nil) != 0 {
		t.Fatalf("exitCode(nil) != 0")
	}
}
