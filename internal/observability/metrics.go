package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cwa_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL jobs.
type Metrics struct {
	JobRuns        *prometheus.CounterVec   // labels: job, outcome={success,error}
	JobDuration    *prometheus.HistogramVec // labels: job
	LastSuccess    *prometheus.GaugeVec     // labels: job; unix seconds
	CitiesWritten  prometheus.Gauge
	CitiesSkipped  prometheus.Counter
	DocumentsSaved *prometheus.CounterVec // labels: sink={file,kafka}, kind

	// Upstream fetch metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: source, outcome={success,retry,error}
	UpstreamDuration *prometheus.HistogramVec // labels: source
	CircuitState     *prometheus.GaugeVec     // labels: source; 0 closed, 1 half-open, 2 open
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.JobRuns,
		m.JobDuration,
		m.LastSuccess,
		m.CitiesWritten,
		m.CitiesSkipped,
		m.DocumentsSaved,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.CircuitState,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Job executions by job and outcome.",
		}, []string{"job", "outcome"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-write job run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run per job.",
		}, []string{"job"}),
		CitiesWritten: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forecast_cities",
			Help:      "Cities in the most recent forecast document.",
		}),
		CitiesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cities_skipped_total",
			Help:      "Cities dropped during normalization.",
		}),
		DocumentsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_saved_total",
			Help:      "Documents delivered by sink and kind.",
		}, []string{"sink", "kind"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream HTTP attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream HTTP request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		CircuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_state",
			Help:      "Circuit breaker state per upstream: 0 closed, 1 half-open, 2 open.",
		}, []string{"source"}),
	}
}
