// Package metrics exposes runner and provider activity as Prometheus
// collectors. Each Collector owns its registry so several can coexist in one
// process (tests, embedded runners).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gametrack/internal/enrich"
	"gametrack/internal/provider"
)

const namespace = "gametrack"

// Collector implements runner.Metrics and the rate limiter wait observer.
type Collector struct {
	registry *prometheus.Registry

	attempts      *prometheus.CounterVec
	outcomes      *prometheus.CounterVec
	rowsFinished  *prometheus.CounterVec
	rowsDemoted   prometheus.Counter
	rateLimitWait *prometheus.HistogramVec
	activeRows    prometheus.Gauge
}

// New builds a Collector with its own registry. Go runtime and process
// collectors are registered alongside the gametrack metrics.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Provider calls issued, by provider class.",
			},
			[]string{"provider"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_outcomes_total",
				Help:      "Retried provider calls by final outcome.",
			},
			[]string{"provider", "outcome"},
		),
		rowsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_finished_total",
				Help:      "Rows that reached a terminal status.",
			},
			[]string{"status"},
		),
		rowsDemoted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_demoted_total",
			Help:      "Rows moved from the vendor stage to the fallback stage.",
		}),
		rateLimitWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rate_limit_wait_seconds",
				Help:      "Time spent waiting for a provider class slot.",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"provider"},
		),
		activeRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rows",
			Help:      "Rows currently being processed.",
		}),
	}
	c.registry.MustRegister(
		c.attempts,
		c.outcomes,
		c.rowsFinished,
		c.rowsDemoted,
		c.rateLimitWait,
		c.activeRows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ProviderAttempt(class provider.Class) {
	c.attempts.WithLabelValues(string(class)).Inc()
}

func (c *Collector) ProviderOutcome(class provider.Class, outcome string) {
	c.outcomes.WithLabelValues(string(class), outcome).Inc()
}

func (c *Collector) RowFinished(status enrich.RowStatus) {
	c.rowsFinished.WithLabelValues(string(status)).Inc()
}

func (c *Collector) RowDemoted() {
	c.rowsDemoted.Inc()
}

func (c *Collector) ActiveRows(n int) {
	c.activeRows.Set(float64(n))
}

// ObserveWait matches ratelimit.Observer.
func (c *Collector) ObserveWait(class provider.Class, waited time.Duration) {
	c.rateLimitWait.WithLabelValues(string(class)).Observe(waited.Seconds())
}
