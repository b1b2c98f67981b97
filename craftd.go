package craftd

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcpanel/craftd/internal/broadcast"
	cfg "github.com/mcpanel/craftd/internal/config"
	"github.com/mcpanel/craftd/internal/console"
	"github.com/mcpanel/craftd/internal/event"
	"github.com/mcpanel/craftd/internal/history"
	"github.com/mcpanel/craftd/internal/metrics"
	"github.com/mcpanel/craftd/internal/proc"
	"github.com/mcpanel/craftd/internal/registry"
	iapi "github.com/mcpanel/craftd/internal/server"
	"github.com/mcpanel/craftd/internal/store"
	storefactory "github.com/mcpanel/craftd/internal/store/factory"
	"github.com/mcpanel/craftd/internal/supervisor"
	itls "github.com/mcpanel/craftd/internal/tls"
)

// Re-export core types for external consumers. These are aliases so
// conversions are zero-cost.

type Identity = proc.Identity

type Snapshot = supervisor.Snapshot

type Status = supervisor.Status

type Event = event.Event

type OutputLine = console.OutputLine

type Store = store.Store

type HistorySink = history.Sink

// Engine is a thin facade over the internal registry and broadcast hub.
// It provides a stable public API for embedding.
type Engine struct {
	reg *registry.Registry
	hub *broadcast.Hub
}

// EngineOptions configures an embedded engine. All fields are optional.
type EngineOptions struct {
	Store         Store
	History       HistorySink
	ConsoleWriter func(name string) io.WriteCloser
	Logger        *slog.Logger
}

func New(opts EngineOptions) *Engine {
	hub := broadcast.NewHub(opts.Logger)
	regOpts := registry.Options{
		Broadcaster:   hub,
		ConsoleWriter: opts.ConsoleWriter,
		Logger:        opts.Logger,
	}
	if opts.Store != nil {
		regOpts.Store = opts.Store
	}
	if opts.History != nil {
		regOpts.History = opts.History
	}
	return &Engine{reg: registry.New(regOpts), hub: hub}
}

// Run owns the event fan-out loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) { e.hub.Run(ctx) }

func (e *Engine) Register(id Identity) error       { return e.reg.Register(id) }
func (e *Engine) RegisterAll(ids []Identity) error { return e.reg.RegisterAll(ids) }
func (e *Engine) Remove(id string) error           { return e.reg.Remove(id) }
func (e *Engine) List() []Snapshot                 { return e.reg.List() }
func (e *Engine) IDs() []string                    { return e.reg.IDs() }
func (e *Engine) StartAll()                        { e.reg.StartAll() }

func (e *Engine) Start(id string) error {
	s, err := e.reg.Get(id)
	if err != nil {
		return err
	}
	return s.Start()
}

func (e *Engine) Stop(id string, force bool) error {
	s, err := e.reg.Get(id)
	if err != nil {
		return err
	}
	return s.Stop(force)
}

func (e *Engine) Restart(id string) error {
	s, err := e.reg.Get(id)
	if err != nil {
		return err
	}
	return s.Restart()
}

func (e *Engine) Command(id, command string) error {
	s, err := e.reg.Get(id)
	if err != nil {
		return err
	}
	return s.Command(command)
}

func (e *Engine) Status(id string) (Snapshot, error) {
	s, err := e.reg.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

func (e *Engine) RecentOutput(id string, n int) ([]OutputLine, error) {
	s, err := e.reg.Get(id)
	if err != nil {
		return nil, err
	}
	return s.RecentOutput(n), nil
}

// Shutdown stops all servers gracefully and releases their supervisors.
func (e *Engine) Shutdown(ctx context.Context) error { return e.reg.Shutdown(ctx) }

// LoadConfig parses a craftd TOML config file.
func LoadConfig(path string) (*cfg.FileConfig, error) { return cfg.Load(path) }

// NewStore opens a status store from a DSN (sqlite path or postgres URL).
func NewStore(dsn string) (Store, error) { return storefactory.NewFromDSN(dsn) }

// NewHTTPServer starts an HTTP server exposing the management API.
func NewHTTPServer(addr, basePath string, e *Engine) *http.Server {
	return iapi.NewServer(addr, basePath, e.reg, e.hub)
}

// NewTLSServer starts an HTTPS server exposing the management API using the
// [daemon.tls] settings.
func NewTLSServer(addr, basePath string, tlsCfg *itls.Config, e *Engine) (*http.Server, error) {
	stdCfg, err := itls.Setup(tlsCfg)
	if err != nil {
		return nil, err
	}
	if stdCfg == nil {
		return iapi.NewServer(addr, basePath, e.reg, e.hub), nil
	}
	return iapi.NewTLSServer(addr, basePath, stdCfg, e.reg, e.hub), nil
}

// HTTPHandler returns the management API as an http.Handler for mounting in
// an existing server or mux.
func HTTPHandler(basePath string, e *Engine) http.Handler {
	return iapi.NewRouter(e.reg, e.hub, basePath).Handler()
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It runs in the caller goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
