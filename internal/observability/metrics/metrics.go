// Package metrics holds the process-wide Prometheus collectors. They are
// exposed on the debug listener at /metrics when pprof is enabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Refreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barstatus",
			Subsystem: "feature",
			Name:      "refreshes_total",
			Help:      "Feature refreshes processed by the dispatch loop.",
		},
		[]string{"feature", "result"},
	)

	RefreshLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "barstatus",
			Subsystem: "feature",
			Name:      "refresh_seconds",
			Help:      "Time spent in a feature refresh.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10), // 0.5ms to ~2m
		},
		[]string{"feature"},
	)

	Renders = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "barstatus",
		Subsystem: "bar",
		Name:      "renders_total",
		Help:      "Status lines written.",
	})

	Alerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barstatus",
			Subsystem: "alert",
			Name:      "events_total",
			Help:      "Desktop alerts by outcome.",
		},
		[]string{"result"},
	)
)

// Refresh result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Alert outcome labels.
const (
	AlertSent      = "sent"
	AlertFailed    = "failed"
	AlertDeduped   = "deduped"
	AlertQueueFull = "queue_full"
)

// ObserveRefresh records one refresh of feature id.
func ObserveRefresh(id string, took time.Duration, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	Refreshes.WithLabelValues(id, result).Inc()
	RefreshLatency.WithLabelValues(id).Observe(took.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
