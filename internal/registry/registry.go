package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mcpanel/craftd/internal/event"
	"github.com/mcpanel/craftd/internal/proc"
	"github.com/mcpanel/craftd/internal/supervisor"
)

var (
	ErrDuplicateServer = errors.New("server id already registered")
	ErrUnknownServer   = errors.New("unknown server")
)

// StatusStore persists last-known server status across daemon restarts.
// store.Store satisfies it.
type StatusStore interface {
	UpdateStatus(ctx context.Context, serverID, status string, pid int) error
	RecordStart(ctx context.Context, serverID string, at time.Time) error
	RecordStop(ctx context.Context, serverID string, at time.Time, uptime time.Duration) error
}

// Broadcaster receives every tagged event for live fan-out.
// broadcast.Hub satisfies it.
type Broadcaster interface {
	Publish(e event.Event)
}

// HistorySink archives events for later querying. history.Sink satisfies it.
type HistorySink interface {
	Send(ctx context.Context, e event.Event) error
}

// ConsoleWriterFunc opens a console log writer for a server name, or nil
// when console files are disabled.
type ConsoleWriterFunc func(name string) io.WriteCloser

// Options carries the registry's optional collaborators. Any field may be
// nil.
type Options struct {
	Store         StatusStore
	Broadcaster   Broadcaster
	History       HistorySink
	ConsoleWriter ConsoleWriterFunc
	Logger        *slog.Logger
}

type entry struct {
	sup          *supervisor.Supervisor
	console      io.WriteCloser
	runningSince time.Time
	pumpDone     chan struct{}
}

// Registry owns all supervisors in the daemon. Each server id maps to at
// most one live supervisor; the per-supervisor event stream is tagged with
// the server id and republished to the store, broadcaster and history sink.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	opts    Options
	log     *slog.Logger
}

func New(opts Options) *Registry {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		entries: make(map[string]*entry),
		opts:    opts,
		log:     log.With("component", "registry"),
	}
}

// Register creates a supervisor for the identity. The id must be unused.
func (r *Registry) Register(id proc.Identity) error {
	if id.ID == "" {
		return errors.New("server identity requires id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateServer, id.ID)
	}
	sup := supervisor.New(id, r.log)
	e := &entry{sup: sup, pumpDone: make(chan struct{})}
	if r.opts.ConsoleWriter != nil {
		e.console = r.opts.ConsoleWriter(id.ID)
	}
	r.entries[id.ID] = e
	go r.pump(id.ID, e)
	r.log.Info("server registered", "server", id.ID, "dir", id.Dir)
	return nil
}

// RegisterAll registers every identity, stopping at the first error.
func (r *Registry) RegisterAll(ids []proc.Identity) error {
	for _, id := range ids {
		if err := r.Register(id); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the supervisor for id.
func (r *Registry) Get(id string) (*supervisor.Supervisor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownServer, id)
	}
	return e.sup, nil
}

// Remove destroys the supervisor for id and drops it from the registry.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownServer, id)
	}
	e.sup.Destroy()
	<-e.pumpDone
	return nil
}

// List returns snapshots of all registered servers ordered by id.
func (r *Registry) List() []supervisor.Snapshot {
	r.mu.RLock()
	out := make([]supervisor.Snapshot, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.sup.Snapshot())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns the registered server ids ordered lexically.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// StartAll starts every server with autorestart enabled; startup failures
// are logged, not fatal.
func (r *Registry) StartAll() {
	r.mu.RLock()
	sups := make([]*supervisor.Supervisor, 0, len(r.entries))
	for _, e := range r.entries {
		if e.sup.Identity().AutoRestart {
			sups = append(sups, e.sup)
		}
	}
	r.mu.RUnlock()
	for _, s := range sups {
		if err := s.Start(); err != nil {
			r.log.Warn("autostart failed", "server", s.Identity().ID, "error", err)
		}
	}
}

// Shutdown stops all servers gracefully and destroys their supervisors.
// It returns once every supervisor has settled or ctx expires.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		if err := e.sup.Stop(false); err != nil && !errors.Is(err, supervisor.ErrDestroyed) {
			r.log.Warn("shutdown stop failed", "server", e.sup.Identity().ID, "error", err)
		}
	}

	settle := func(e *entry) error {
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		for {
			st := e.sup.CurrentStatus()
			if st == supervisor.StatusStopped || st == supervisor.StatusCrashed {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	var firstErr error
	for _, e := range entries {
		if err := settle(e); err != nil && firstErr == nil {
			firstErr = err
		}
		e.sup.Destroy()
		<-e.pumpDone
	}
	return firstErr
}

// pump republishes one supervisor's events until its channel closes.
func (r *Registry) pump(id string, e *entry) {
	defer close(e.pumpDone)
	defer func() {
		if e.console != nil {
			_ = e.console.Close()
		}
	}()
	for ev := range e.sup.Events() {
		ev.ServerID = id
		r.dispatch(id, e, ev)
	}
}

func (r *Registry) dispatch(id string, e *entry, ev event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch ev.Type {
	case event.TypeOutputProduced:
		if e.console != nil {
			_, _ = e.console.Write([]byte(ev.Line + "\n"))
		}
	case event.TypeStarted:
		e.runningSince = ev.OccurredAt
		if r.opts.Store != nil {
			if err := r.opts.Store.RecordStart(ctx, id, ev.OccurredAt); err != nil {
				r.log.Warn("record start failed", "server", id, "error", err)
			}
		}
	case event.TypeStopped, event.TypeCrashed:
		if !e.runningSince.IsZero() {
			uptime := ev.OccurredAt.Sub(e.runningSince)
			e.runningSince = time.Time{}
			if r.opts.Store != nil {
				if err := r.opts.Store.RecordStop(ctx, id, ev.OccurredAt, uptime); err != nil {
					r.log.Warn("record stop failed", "server", id, "error", err)
				}
			}
		}
	case event.TypeStatusChanged:
		if r.opts.Store != nil {
			pid := 0
			if s, err := r.Get(id); err == nil {
				pid = s.Snapshot().PID
			}
			if err := r.opts.Store.UpdateStatus(ctx, id, ev.NewStatus, pid); err != nil {
				r.log.Warn("status persist failed", "server", id, "error", err)
			}
		}
	}

	if r.opts.Broadcaster != nil {
		r.opts.Broadcaster.Publish(ev)
	}
	if r.opts.History != nil && ev.Type != event.TypeOutputProduced {
		if err := r.opts.History.Send(ctx, ev); err != nil {
			r.log.Warn("history send failed", "server", id, "error", err)
		}
	}
}
