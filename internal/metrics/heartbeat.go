package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Heartbeat exposes heartbeat run outcomes as Prometheus metrics.
type Heartbeat struct {
	runsTotal   *prometheus.CounterVec
	lastSuccess prometheus.Gauge
	duration    prometheus.Histogram
}

// NewHeartbeat registers the heartbeat collectors with reg.
func NewHeartbeat(reg prometheus.Registerer) *Heartbeat {
	factory := promauto.With(reg)
	return &Heartbeat{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cronbeat_runs_total",
			Help: "Total number of heartbeat runs by result",
		}, []string{"result"}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cronbeat_last_success_timestamp_seconds",
			Help: "Unix time of the last successful heartbeat run",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cronbeat_run_duration_seconds",
			Help:    "Heartbeat run duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveRun records one finished run.
func (h *Heartbeat) ObserveRun(result string, took time.Duration, at time.Time) {
	h.runsTotal.WithLabelValues(result).Inc()
	h.duration.Observe(took.Seconds())
	if result == "success" {
		h.lastSuccess.Set(float64(at.Unix()))
	}
}
