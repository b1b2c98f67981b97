package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mcpanel/craftd"
	"github.com/mcpanel/craftd/internal/config"
	chsink "github.com/mcpanel/craftd/internal/history/clickhouse"
	sqsink "github.com/mcpanel/craftd/internal/history/sqlite"
)

func runServeCommand(flags *ServeFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}
	if configPath == "" {
		return fmt.Errorf("config file required. Use --config=craftd.toml or provide as argument")
	}

	cfg, err := craftd.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if flags.Daemonize {
		return daemonize(flags.PidFile, flags.LogFile)
	}

	log := cfg.Log.NewSlogger()
	slog.SetDefault(log)

	opts := craftd.EngineOptions{Logger: log}

	if cfg.Daemon.StoreDSN != "" {
		st, err := craftd.NewStore(cfg.Daemon.StoreDSN)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer func() { _ = st.Close() }()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = st.EnsureSchema(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to prepare store schema: %w", err)
		}
		opts.Store = st
	}

	if sink, err := openHistorySink(cfg.History); err != nil {
		return err
	} else if sink != nil {
		defer func() { _ = sink.Close() }()
		opts.History = sink
	}

	if cfg.Log.File.Dir != "" {
		logCfg := cfg.Log
		opts.ConsoleWriter = func(name string) io.WriteCloser {
			return logCfg.ConsoleWriter(name)
		}
	}

	if err := craftd.RegisterMetricsDefault(); err != nil {
		log.Warn("failed to register metrics", "error", err)
	}

	engine := craftd.New(opts)
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go engine.Run(runCtx)

	if err := engine.RegisterAll(cfg.Identities()); err != nil {
		return fmt.Errorf("failed to register servers: %w", err)
	}
	engine.StartAll()

	protocol := "http"
	var srv *http.Server
	if cfg.Daemon.TLS != nil && cfg.Daemon.TLS.Enabled {
		protocol = "https"
		srv, err = craftd.NewTLSServer(cfg.Daemon.Listen, cfg.Daemon.BasePath, cfg.Daemon.TLS, engine)
		if err != nil {
			return fmt.Errorf("failed to create HTTPS server: %w", err)
		}
	} else {
		srv = craftd.NewHTTPServer(cfg.Daemon.Listen, cfg.Daemon.BasePath, engine)
	}
	log.Info("craftd daemon listening", "addr", cfg.Daemon.Listen, "protocol", protocol, "servers", len(cfg.Servers))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := engine.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", "error", err)
	}
	if flags.PidFile != "" {
		_ = removePidFile(flags.PidFile)
	}
	return srv.Close()
}

func openHistorySink(hc config.HistoryConfig) (craftd.HistorySink, error) {
	switch strings.ToLower(strings.TrimSpace(hc.Type)) {
	case "":
		return nil, nil
	case "sqlite":
		sink, err := sqsink.New(hc.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite history: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sink.EnsureSchema(ctx); err != nil {
			_ = sink.Close()
			return nil, fmt.Errorf("failed to prepare sqlite history schema: %w", err)
		}
		return sink, nil
	case "clickhouse":
		table := hc.Table
		if table == "" {
			table = "server_events"
		}
		sink, err := chsink.New(hc.DSN, table)
		if err != nil {
			return nil, fmt.Errorf("failed to open clickhouse history: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sink.EnsureSchema(ctx); err != nil {
			_ = sink.Close()
			return nil, fmt.Errorf("failed to prepare clickhouse history schema: %w", err)
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown history type %q", hc.Type)
	}
}
