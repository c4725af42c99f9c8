package diagnostics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	composeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arcbot_diagnostics_compose_duration_seconds",
			Help:    "Time taken to compose a complete diagnostics snapshot",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	composeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcbot_diagnostics_compose_total",
			Help: "Total number of diagnostics snapshot attempts",
		},
		[]string{"status"}, // success or error
	)

	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arcbot_diagnostics_step_duration_seconds",
			Help:    "Time taken by individual snapshot steps",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"step"}, // rest, memory, source, manifest
	)

	scannedFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arcbot_diagnostics_source_files",
			Help: "Number of source files counted by the last snapshot",
		},
	)
)
