package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Probe metrics
	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dops_probes_total",
			Help: "Total number of backend liveness probes by source and result",
		},
		[]string{"source", "result"},
	)

	ProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dops_probe_duration_seconds",
			Help:    "Liveness probe duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Warm-up metrics
	WarmupTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dops_warmup_transitions_total",
			Help: "Total number of warm-up phase transitions by target phase",
		},
		[]string{"phase"},
	)

	WarmupProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dops_warmup_progress_percent",
			Help: "Current warm-up progress percentage (0-100)",
		},
	)

	WarmupReadyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dops_warmup_ready_seconds",
			Help:    "Time from session start until the backend was first confirmed ready",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120, 180},
		},
	)

	RecoveryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dops_recovery_total",
			Help: "Total number of recovery procedures by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// Application data metrics
	LocationLoadAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dops_location_load_attempts_total",
			Help: "Total number of location catalog fetch attempts by result",
		},
		[]string{"result"},
	)

	PredictionRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dops_prediction_requests_total",
			Help: "Total number of prediction requests by result",
		},
		[]string{"result"},
	)

	PredictionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dops_prediction_duration_seconds",
			Help:    "Prediction request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(ProbesTotal)
	prometheus.MustRegister(ProbeDuration)
	prometheus.MustRegister(WarmupTransitions)
	prometheus.MustRegister(WarmupProgress)
	prometheus.MustRegister(WarmupReadyDuration)
	prometheus.MustRegister(RecoveryTotal)
	prometheus.MustRegister(LocationLoadAttempts)
	prometheus.MustRegister(PredictionRequests)
	prometheus.MustRegister(PredictionDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
