package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register.
var (
	rendererSpawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wpe",
			Subsystem: "renderer",
			Name:      "spawns_total",
			Help:      "Number of successful renderer spawns.",
		}, []string{"monitor"},
	)
	rendererStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wpe",
			Subsystem: "renderer",
			Name:      "stops_total",
			Help:      "Number of requested renderer stops.",
		}, []string{"monitor"},
	)
	rendererCrashes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wpe",
			Subsystem: "renderer",
			Name:      "crashes_total",
			Help:      "Number of renderers that exited on their own.",
		}, []string{"monitor"},
	)
	rendererRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wpe",
			Subsystem: "renderer",
			Name:      "restarts_total",
			Help:      "Number of restart-on-change replacements.",
		}, []string{"monitor"},
	)
	runningRenderers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wpe",
			Subsystem: "renderer",
			Name:      "running",
			Help:      "Current number of tracked renderer processes.",
		},
	)
)

// Register adds the collectors to reg. Safe to call more than once.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		rendererSpawns, rendererStops, rendererCrashes, rendererRestarts, runningRenderers,
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler exposes the default gatherer for mounting at /metrics.
func Handler() http.Handler { return promhttp.Handler() }

func IncSpawn(monitor string)   { rendererSpawns.WithLabelValues(monitor).Inc() }
func IncStop(monitor string)    { rendererStops.WithLabelValues(monitor).Inc() }
func IncCrash(monitor string)   { rendererCrashes.WithLabelValues(monitor).Inc() }
func IncRestart(monitor string) { rendererRestarts.WithLabelValues(monitor).Inc() }
func SetRunning(n int)          { runningRenderers.Set(float64(n)) }
