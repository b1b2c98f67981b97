package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	serverStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftd",
			Subsystem: "server",
			Name:      "starts_total",
			Help:      "Number of successful server process spawns.",
		}, []string{"server"},
	)
	serverStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftd",
			Subsystem: "server",
			Name:      "stops_total",
			Help:      "Number of clean server stops.",
		}, []string{"server"},
	)
	serverCrashes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftd",
			Subsystem: "server",
			Name:      "crashes_total",
			Help:      "Number of abnormal exits (nonzero exit code or spawn failure).",
		}, []string{"server"},
	)
	serverRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftd",
			Subsystem: "server",
			Name:      "restarts_total",
			Help:      "Number of automatic crash-restart attempts.",
		}, []string{"server"},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craftd",
			Subsystem: "server",
			Name:      "state_transitions_total",
			Help:      "Number of lifecycle state transitions.",
		}, []string{"server", "from", "to"},
	)
	currentStates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "craftd",
			Subsystem: "server",
			Name:      "current_state",
			Help:      "Current lifecycle state (1 = active state, 0 = inactive).",
		}, []string{"server", "state"},
	)
	playersOnline = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "craftd",
			Subsystem: "server",
			Name:      "players_online",
			Help:      "Players currently online as observed from console output.",
		}, []string{"server"},
	)
	ticksPerSecond = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "craftd",
			Subsystem: "server",
			Name:      "ticks_per_second",
			Help:      "Last ticks-per-second value reported by the server.",
		}, []string{"server"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		serverStarts, serverStops, serverCrashes, serverRestarts,
		stateTransitions, currentStates, playersOnline, ticksPerSecond,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the
// DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncStart(server string) {
	if regOK.Load() {
		serverStarts.WithLabelValues(server).Inc()
	}
}

func IncStop(server string) {
	if regOK.Load() {
		serverStops.WithLabelValues(server).Inc()
	}
}

func IncCrash(server string) {
	if regOK.Load() {
		serverCrashes.WithLabelValues(server).Inc()
	}
}

func IncRestart(server string) {
	if regOK.Load() {
		serverRestarts.WithLabelValues(server).Inc()
	}
}

func RecordStateTransition(server, from, to string) {
	if regOK.Load() {
		stateTransitions.WithLabelValues(server, from, to).Inc()
	}
}

func SetCurrentState(server, state string, active bool) {
	if regOK.Load() {
		v := 0.0
		if active {
			v = 1
		}
		currentStates.WithLabelValues(server, state).Set(v)
	}
}

func SetPlayersOnline(server string, n int) {
	if regOK.Load() {
		playersOnline.WithLabelValues(server).Set(float64(n))
	}
}

func SetTPS(server string, tps float64) {
	if regOK.Load() {
		ticksPerSecond.WithLabelValues(server).Set(tps)
	}
}
