package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// SolverRuns counts finished grouping runs by outcome: feasible, partial, error
	SolverRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cargroup_solver_runs_total", Help: "Grouping runs by outcome."},
		[]string{"outcome"},
	)
	// SolverDuration tracks wall time of a grouping run
	SolverDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "cargroup_solver_duration_seconds", Help: "Grouping run duration in seconds.", Buckets: []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30}},
	)
	// SolverIterations tracks annealing iterations per run
	SolverIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "cargroup_solver_iterations", Help: "Annealing iterations per grouping run.", Buckets: prometheus.ExponentialBuckets(100, 4, 8)},
	)
	// SolverBestSoftCost is the soft cost of the most recent result
	SolverBestSoftCost = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "cargroup_solver_best_soft_cost", Help: "Soft balance cost of the latest grouping result."},
	)
)

// RegisterDefault registers collectors to the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SolverRuns)
		Registry.MustRegister(SolverDuration)
		Registry.MustRegister(SolverIterations)
		Registry.MustRegister(SolverBestSoftCost)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// ObserveRun records one finished grouping run.
func ObserveRun(outcome string, took time.Duration, iterations int, softCost float64) {
	SolverRuns.WithLabelValues(outcome).Inc()
	SolverDuration.Observe(took.Seconds())
	SolverIterations.Observe(float64(iterations))
	if outcome != "error" {
		SolverBestSoftCost.Set(softCost)
	}
}
