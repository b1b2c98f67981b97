package supervisor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcpanel/craftd/internal/console"
	"github.com/mcpanel/craftd/internal/event"
	"github.com/mcpanel/craftd/internal/metrics"
	"github.com/mcpanel/craftd/internal/proc"
)

// restartPollInterval is how often Restart checks for the stopped state
// before starting again.
const restartPollInterval = 500 * time.Millisecond

// eventBufferSize bounds the outward event channel. The registry is the
// single subscriber; when it falls behind, events are dropped rather than
// blocking the state machine.
const eventBufferSize = 256

type ctrlAction int

const (
	actionStart ctrlAction = iota
	actionStop
	actionCommand
	actionDestroy
)

type ctrlMsg struct {
	action  ctrlAction
	force   bool   // stop
	command string // command text
	reply   chan error
}

type procMsg struct {
	output string
	exit   bool
	code   int
}

// Supervisor coordinates one game server's full lifecycle: it owns the
// process handle, the output parser, the console ring buffer, and the
// in-memory player set. All transitions run on a single goroutine fed by
// control and process-event channels, so no two transitions for the same
// server ever execute concurrently.
type Supervisor struct {
	identity proc.Identity
	log      *slog.Logger

	mu        sync.RWMutex // guards the snapshot-visible fields below
	state     Status
	handle    *proc.Handle
	players   map[string]struct{}
	maxSlots  int
	version   string
	tps       float64
	startedAt time.Time
	attempts  int
	stopReq   bool
	destroyed bool

	parser console.Parser // run-loop owned
	ring   *console.Ring

	ctrl   chan ctrlMsg
	procCh chan procMsg
	events chan event.Event
	done   chan struct{}
}

// New constructs a supervisor in the Stopped state and starts its run loop.
func New(identity proc.Identity, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	s := &Supervisor{
		identity: identity,
		log:      log.With("server", identity.ID),
		state:    StatusStopped,
		players:  make(map[string]struct{}),
		maxSlots: DefaultMaxPlayers,
		version:  DefaultVersion,
		tps:      DefaultTPS,
		ring:     console.NewRing(identity.ConsoleBuffer),
		ctrl:     make(chan ctrlMsg),
		procCh:   make(chan procMsg, 64),
		events:   make(chan event.Event, eventBufferSize),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

// Identity returns the immutable launch description.
func (s *Supervisor) Identity() proc.Identity { return s.identity }

// Events is the outward domain-event stream. Single subscriber; closed by
// Destroy.
func (s *Supervisor) Events() <-chan event.Event { return s.events }

// Start requests a spawn. It returns once the spawn is dispatched, not once
// the server is ready; readiness arrives asynchronously as a Started event.
// Valid only from Stopped or Crashed.
func (s *Supervisor) Start() error {
	return s.send(ctrlMsg{action: actionStart})
}

// Stop requests shutdown. Graceful sends the in-band stop command and arms
// the escalation timeout; force kills at once. Idempotent when already
// stopped.
func (s *Supervisor) Stop(force bool) error {
	return s.send(ctrlMsg{action: actionStop, force: force})
}

// Command writes one console command to the server. Only valid while
// Running; otherwise returns ErrCommandRejected without side effects.
func (s *Supervisor) Command(text string) error {
	return s.send(ctrlMsg{action: actionCommand, command: text})
}

// Restart stops the server, polls for it to settle, then starts it again.
func (s *Supervisor) Restart() error {
	if err := s.Stop(false); err != nil {
		return err
	}
	deadline := time.Now().Add(s.identity.StopTimeoutOrDefault() + 10*time.Second)
	for {
		st := s.CurrentStatus()
		if st == StatusStopped || st == StatusCrashed {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("restart: server %s did not stop in time", s.identity.ID)
		}
		time.Sleep(restartPollInterval)
	}
	return s.Start()
}

// Destroy force-kills the process and tears the supervisor down. Terminal:
// the instance must not be reused afterwards.
func (s *Supervisor) Destroy() {
	_ = s.send(ctrlMsg{action: actionDestroy})
}

// CurrentStatus returns the lifecycle state.
func (s *Supervisor) CurrentStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// RecentOutput returns up to n most recent console lines, oldest first.
func (s *Supervisor) RecentOutput(n int) []console.OutputLine {
	return s.ring.Last(n)
}

// Snapshot recomputes the derived runtime view.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]string, 0, len(s.players))
	for p := range s.players {
		players = append(players, p)
	}
	snap := Snapshot{
		ID:              s.identity.ID,
		Name:            s.identity.Name,
		Status:          s.state.String(),
		Players:         players,
		MaxPlayers:      s.maxSlots,
		Version:         s.version,
		TPS:             s.tps,
		StartedAt:       s.startedAt,
		RestartAttempts: s.attempts,
	}
	if s.handle != nil {
		snap.PID = s.handle.PID()
	}
	if !s.startedAt.IsZero() && (s.state == StatusRunning || s.state == StatusStarting) {
		snap.UptimeSeconds = int64(time.Since(s.startedAt).Seconds())
	}
	return snap
}

func (s *Supervisor) send(msg ctrlMsg) error {
	msg.reply = make(chan error, 1)
	select {
	case s.ctrl <- msg:
		return <-msg.reply
	case <-s.done:
		return ErrDestroyed
	}
}

// run is the single goroutine that owns every state transition. Timers for
// graceful-stop escalation and crash restart live here so that they are
// trivially cancellable when the awaited condition arrives first.
func (s *Supervisor) run() {
	var (
		stopTimer    *time.Timer
		stopC        <-chan time.Time
		restartTimer *time.Timer
		restartC     <-chan time.Time
	)
	cancelStop := func() {
		if stopTimer != nil {
			stopTimer.Stop()
			stopTimer, stopC = nil, nil
		}
	}
	cancelRestart := func() {
		if restartTimer != nil {
			restartTimer.Stop()
			restartTimer, restartC = nil, nil
		}
	}

	for {
		select {
		case msg := <-s.ctrl:
			switch msg.action {
			case actionStart:
				cancelRestart() // explicit start supersedes a pending auto-restart
				msg.reply <- s.handleStart(true)
			case actionStop:
				cancelRestart()
				timeout, err := s.handleStop(msg.force)
				if timeout > 0 {
					cancelStop()
					stopTimer = time.NewTimer(timeout)
					stopC = stopTimer.C
				}
				msg.reply <- err
			case actionCommand:
				msg.reply <- s.handleCommand(msg.command)
			case actionDestroy:
				cancelStop()
				cancelRestart()
				s.handleDestroy()
				msg.reply <- nil
				close(s.done)
				close(s.events)
				return
			}

		case pm := <-s.procCh:
			if pm.exit {
				cancelStop() // natural exit cancels the escalation timer
				restart := s.handleExit(pm.code)
				if restart {
					cancelRestart()
					restartTimer = time.NewTimer(s.identity.RestartDelayOrDefault())
					restartC = restartTimer.C
				}
			} else {
				s.handleOutput(pm.output)
			}

		case <-stopC:
			stopTimer, stopC = nil, nil
			s.escalateStop()

		case <-restartC:
			restartTimer, restartC = nil, nil
			s.autoRestart()
		}
	}
}

// handleStart validates the transition and spawns the process. external
// marks operator-initiated starts, which reset the restart-attempt counter;
// auto-restarts keep counting.
func (s *Supervisor) handleStart(external bool) error {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()

	if state != StatusStopped && state != StatusCrashed {
		return fmt.Errorf("%w: start from %s", ErrInvalidState, state)
	}
	if external {
		s.mu.Lock()
		s.attempts = 0
		s.mu.Unlock()
	}
	return s.doStart()
}

func (s *Supervisor) doStart() error {
	s.setState(StatusStarting)
	s.emit(event.Starting())

	handle, err := proc.Spawn(s.identity, proc.Callbacks{
		OnOutput: func(chunk string) {
			select {
			case s.procCh <- procMsg{output: chunk}:
			case <-s.done:
			}
		},
		OnExit: func(code int) {
			select {
			case s.procCh <- procMsg{exit: true, code: code}:
			case <-s.done:
			}
		},
	})
	if err != nil {
		// Spawn-time failures become Crashed but are never auto-retried;
		// only post-spawn crashes feed the restart policy.
		s.log.Error("spawn failed", "error", err)
		s.setState(StatusCrashed)
		s.emit(event.Crashed(-1))
		metrics.IncCrash(s.identity.ID)
		return err
	}

	s.mu.Lock()
	s.handle = handle
	s.startedAt = handle.StartedAt()
	s.stopReq = false
	s.players = make(map[string]struct{})
	s.maxSlots = DefaultMaxPlayers
	s.version = DefaultVersion
	s.tps = DefaultTPS
	s.mu.Unlock()

	s.parser = console.Parser{}
	s.log.Info("server starting", "pid", handle.PID())
	metrics.IncStart(s.identity.ID)
	return nil
}

// handleStop returns the escalation timeout to arm (0 for none).
func (s *Supervisor) handleStop(force bool) (time.Duration, error) {
	s.mu.RLock()
	state := s.state
	handle := s.handle
	s.mu.RUnlock()

	switch state {
	case StatusStopped, StatusCrashed:
		return 0, nil // idempotent no-op
	case StatusStopping:
		if force && handle != nil {
			handle.Signal(false)
		}
		return 0, nil
	}

	s.mu.Lock()
	s.stopReq = true
	s.mu.Unlock()
	s.setState(StatusStopping)
	s.emit(event.Stopping())

	if handle == nil {
		return 0, nil
	}
	if force {
		handle.Signal(false)
		return 0, nil
	}
	// Graceful protocol: in-band stop command first, kill only if the
	// process outlives the timeout.
	if err := handle.WriteLine("stop"); err != nil {
		handle.Signal(true)
	}
	return s.identity.StopTimeoutOrDefault(), nil
}

func (s *Supervisor) escalateStop() {
	s.mu.RLock()
	state := s.state
	handle := s.handle
	s.mu.RUnlock()
	if state != StatusStopping || handle == nil {
		return
	}
	s.log.Warn("graceful stop timed out, killing process")
	handle.Signal(false)
}

func (s *Supervisor) handleCommand(text string) error {
	s.mu.RLock()
	state := s.state
	handle := s.handle
	s.mu.RUnlock()
	if state != StatusRunning || handle == nil {
		return ErrCommandRejected
	}
	if err := handle.WriteLine(text); err != nil {
		return err
	}
	s.emit(event.CommandAccepted(text))
	return nil
}

// handleExit finalizes a run. Returns true when the crash-restart timer
// should be armed.
func (s *Supervisor) handleExit(code int) bool {
	for _, sig := range s.parser.Flush() {
		s.applySignal(sig)
	}

	s.mu.Lock()
	stopReq := s.stopReq
	s.handle = nil
	s.startedAt = time.Time{}
	s.players = make(map[string]struct{})
	s.mu.Unlock()

	if code == 0 {
		s.log.Info("server stopped cleanly")
		s.setState(StatusStopped)
		s.emit(event.Stopped(0))
		metrics.IncStop(s.identity.ID)
		return false
	}

	s.log.Warn("server exited abnormally", "code", code)
	s.setState(StatusCrashed)
	s.emit(event.Crashed(code))
	metrics.IncCrash(s.identity.ID)

	// Auto-restart only for unexpected deaths: an operator-requested stop
	// that ended in a kill must not resurrect the server.
	if stopReq || !s.identity.AutoRestart {
		return false
	}
	s.mu.RLock()
	attempts := s.attempts
	s.mu.RUnlock()
	if attempts >= s.identity.MaxRestartsOrDefault() {
		s.log.Error("restart attempts exhausted", "attempts", attempts)
		return false
	}
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()
	s.log.Info("scheduling auto-restart", "attempt", attempts+1, "delay", s.identity.RestartDelayOrDefault())
	return true
}

func (s *Supervisor) autoRestart() {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	if state != StatusCrashed {
		return
	}
	metrics.IncRestart(s.identity.ID)
	if err := s.doStart(); err != nil {
		s.log.Error("auto-restart failed", "error", err)
	}
}

func (s *Supervisor) handleDestroy() {
	s.mu.Lock()
	s.destroyed = true
	s.stopReq = true
	handle := s.handle
	s.handle = nil
	s.mu.Unlock()
	if handle != nil {
		handle.Signal(false)
	}
}

func (s *Supervisor) handleOutput(chunk string) {
	for _, sig := range s.parser.Feed(chunk) {
		s.applySignal(sig)
	}
}

// applySignal folds one parsed signal into runtime state and outward events.
// The parser stays pure; the player set is mutated only here.
func (s *Supervisor) applySignal(sig console.Signal) {
	switch sig.Kind {
	case console.SignalLine:
		s.ring.Push(console.OutputLine{Text: sig.Line, At: time.Now()})
		s.emit(event.OutputProduced(sig.Line))

	case console.SignalReady:
		s.mu.RLock()
		state := s.state
		s.mu.RUnlock()
		if state == StatusStarting {
			s.setState(StatusRunning)
			s.emit(event.Started())
			s.log.Info("server ready")
		}

	case console.SignalPlayerJoined:
		s.mu.Lock()
		s.players[sig.Player] = struct{}{}
		n := len(s.players)
		s.mu.Unlock()
		s.emit(event.PlayerJoined(sig.Player))
		metrics.SetPlayersOnline(s.identity.ID, n)

	case console.SignalPlayerLeft:
		s.mu.Lock()
		delete(s.players, sig.Player)
		n := len(s.players)
		s.mu.Unlock()
		s.emit(event.PlayerLeft(sig.Player))
		metrics.SetPlayersOnline(s.identity.ID, n)

	case console.SignalPlayerList:
		// A list response is authoritative: full replace, not incremental.
		s.mu.Lock()
		s.players = make(map[string]struct{}, len(sig.Players))
		for _, p := range sig.Players {
			s.players[p] = struct{}{}
		}
		if sig.MaxPlayers > 0 {
			s.maxSlots = sig.MaxPlayers
		}
		n := len(s.players)
		s.mu.Unlock()
		metrics.SetPlayersOnline(s.identity.ID, n)

	case console.SignalTPS:
		s.mu.Lock()
		s.tps = sig.TPS
		s.mu.Unlock()
		metrics.SetTPS(s.identity.ID, sig.TPS)

	case console.SignalVersion:
		s.mu.Lock()
		s.version = sig.Version
		s.mu.Unlock()

	case console.SignalError:
		s.emit(event.ErrorDetected(sig.Line))
	}
}

func (s *Supervisor) setState(next Status) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev == next {
		return
	}
	s.emit(event.StatusChanged(prev.String(), next.String()))
	metrics.RecordStateTransition(s.identity.ID, prev.String(), next.String())
	metrics.SetCurrentState(s.identity.ID, prev.String(), false)
	metrics.SetCurrentState(s.identity.ID, next.String(), true)
}

// emit forwards an event to the registry without ever blocking the state
// machine. Drops are acceptable: events are advisory, the snapshot is the
// source of truth.
func (s *Supervisor) emit(e event.Event) {
	select {
	case s.events <- e:
	default:
		s.log.Debug("event dropped, subscriber lagging", "type", e.Type)
	}
}
