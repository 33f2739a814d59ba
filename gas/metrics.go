package gas

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("kernelbp.gas")

var (
	// superstepsTotal counts completed supersteps
	superstepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gas_supersteps_total",
		Help: "Total completed engine supersteps",
	})

	// vertexUpdatesTotal counts Apply invocations
	vertexUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gas_vertex_updates_total",
		Help: "Total vertex program applications",
	})

	// signalsTotal counts Context.Signal calls including duplicates
	signalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gas_signals_total",
		Help: "Total vertex signals raised during scatter",
	})

	activeVertices = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gas_active_vertices",
		Help: "Active vertices in the current superstep",
	})

	superstepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gas_superstep_duration_seconds",
		Help:    "Superstep phase duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
	}, []string{"phase"})

	runErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gas_run_errors_total",
		Help: "Engine runs aborted by error, by phase",
	}, []string{"phase"})
)
