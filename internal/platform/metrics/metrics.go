package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated registry behind /metrics and the textfile export.
	Registry = prometheus.NewRegistry()

	// Solves counts finished instance solves by solver status or outcome.
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dropoff_solves_total", Help: "Instance solves by outcome."},
		[]string{"outcome"},
	)
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dropoff_solve_duration_seconds",
			Help:    "Wall time of one instance solve.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
	)
	// Damage is the last solution cost as a percentage of the everyone-walks baseline.
	Damage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "dropoff_damage_percent", Help: "Solution cost over baseline cost, in percent."},
		[]string{"instance"},
	)
	BoundImprovements = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dropoff_bound_improvements_total", Help: "Stored bounds replaced by a better solution."},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(Solves, SolveDuration, Damage, BoundImprovements)
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// ObserveSolve records one finished solve. outcome is the solution status,
// "skipped" or "error".
func ObserveSolve(instance, outcome string, dur time.Duration, damage float64, improved bool) {
	Solves.WithLabelValues(outcome).Inc()
	if outcome == "skipped" || outcome == "error" {
		return
	}
	SolveDuration.Observe(dur.Seconds())
	Damage.WithLabelValues(instance).Set(damage)
	if improved {
		BoundImprovements.Inc()
	}
}

// WriteTextfile dumps Registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
