package proc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ErrSpawn marks failures before the child ever ran: missing jar, missing
// working directory, or an OS-level start failure.
var ErrSpawn = errors.New("spawn failed")

// ErrProcessExited is returned by WriteLine after the child has gone away.
var ErrProcessExited = errors.New("process has exited")

// Callbacks deliver the handle's two asynchronous notifications. OnOutput
// receives raw chunks as they arrive (not line-delimited); OnExit fires
// exactly once with the numeric exit code. Both are invoked from
// handle-owned goroutines.
type Callbacks struct {
	OnOutput func(chunk string)
	OnExit   func(code int)
}

// Handle owns exactly one spawned OS process: its pipes, its process-group
// signals, and its exit reaping. All resource release funnels through one
// finalize path regardless of how the process ends.
type Handle struct {
	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	exited   bool
	started  time.Time
	finalize sync.Once
}

// Spawn builds and starts the child process for the identity, wiring output
// and exit callbacks. The working directory and executable must already
// exist; both are checked before the OS start is attempted.
func Spawn(id Identity, cb Callbacks) (*Handle, error) {
	if st, err := os.Stat(id.Dir); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("%w: working directory missing: %s", ErrSpawn, id.Dir)
	}
	exe := id.ExecutablePath()
	if _, err := os.Stat(exe); err != nil {
		return nil, fmt.Errorf("%w: executable not found: %s", ErrSpawn, exe)
	}

	cmd := buildCommand(id)
	cmd.Dir = id.Dir
	if len(id.Env) > 0 {
		cmd.Env = append(os.Environ(), id.Env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %v", ErrSpawn, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrSpawn, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("%w: stderr pipe: %v", ErrSpawn, err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	h := &Handle{cmd: cmd, stdin: stdin, started: time.Now()}

	var readers sync.WaitGroup
	readers.Add(2)
	go h.pump(stdout, cb.OnOutput, &readers)
	go h.pump(stderr, cb.OnOutput, &readers)

	go func() {
		// Pipes must be drained before Wait reaps the child.
		readers.Wait()
		err := cmd.Wait()
		h.markExited()
		if cb.OnExit != nil {
			cb.OnExit(exitCode(err))
		}
	}()

	return h, nil
}

// buildCommand assembles the launch command. Jars run under the JVM with the
// identity's memory bounds; anything else executes directly, which is what
// test fixtures and wrapper scripts use.
func buildCommand(id Identity) *exec.Cmd {
	exe := id.ExecutablePath()
	if strings.HasSuffix(strings.ToLower(exe), ".jar") {
		args := make([]string, 0, len(id.ExtraArgs)+5)
		if id.MinMemory != "" {
			args = append(args, "-Xms"+id.MinMemory)
		}
		if id.MaxMemory != "" {
			args = append(args, "-Xmx"+id.MaxMemory)
		}
		args = append(args, id.ExtraArgs...)
		args = append(args, "-jar", exe, "nogui")
		// #nosec G204 -- identity comes from operator configuration
		return exec.Command("java", args...)
	}
	// #nosec G204
	return exec.Command(exe, id.ExtraArgs...)
}

func (h *Handle) pump(r io.Reader, onOutput func(string), wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 && onOutput != nil {
			onOutput(string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

// WriteLine appends a newline terminator and writes to the child's stdin.
func (h *Handle) WriteLine(text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exited || h.stdin == nil {
		return ErrProcessExited
	}
	_, err := io.WriteString(h.stdin, text+"\n")
	return err
}

// Signal requests termination of the whole process group. Graceful sends
// SIGTERM, forceful SIGKILL. Fire-and-forget: completion is observed through
// the exit callback, never through this return path.
func (h *Handle) Signal(graceful bool) {
	h.mu.Lock()
	cmd := h.cmd
	exited := h.exited
	h.mu.Unlock()
	if exited || cmd == nil || cmd.Process == nil {
		return
	}
	sig := syscall.SIGKILL
	if graceful {
		sig = syscall.SIGTERM
	}
	_ = syscall.Kill(-cmd.Process.Pid, sig)
}

// PID returns the child's process id, 0 if unavailable.
func (h *Handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// StartedAt reports when the child was spawned.
func (h *Handle) StartedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

// Exited reports whether the child has been reaped.
func (h *Handle) Exited() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exited
}

func (h *Handle) markExited() {
	h.finalize.Do(func() {
		h.mu.Lock()
		h.exited = true
		stdin := h.stdin
		h.stdin = nil
		h.mu.Unlock()
		if stdin != nil {
			_ = stdin.Close()
		}
	})
}

// exitCode maps cmd.Wait's error into the numeric exit convention: 0 clean,
// 128+signal for signal deaths, otherwise the child's status code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return ee.ExitCode()
	}
	return -1
}
