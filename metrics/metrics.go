// Package metrics exposes Prometheus collectors for the blog pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchDurationSeconds *prometheus.HistogramVec
	rendersTotal         *prometheus.CounterVec
	rendersDroppedTotal  *prometheus.CounterVec
	embedInitTotal       *prometheus.CounterVec
	contactTotal         *prometheus.CounterVec

	once sync.Once
)

// Init registers the collectors. It is safe to call multiple times.
func Init() {
	once.Do(func() {
		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blog_fetch_duration_seconds",
				Help:    "Backend query latency of the content fetcher, labeled by operation and outcome.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"op", "outcome"},
		)

		rendersTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blog_renders_total",
				Help: "Total container renders, labeled by kind (list, post) and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		rendersDroppedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blog_renders_dropped_total",
				Help: "Render requests dropped because the container was missing or already rendering.",
			},
			[]string{"reason"},
		)

		embedInitTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blog_embed_init_total",
				Help: "Embed client construction attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		contactTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contact_submissions_total",
				Help: "Contact form submissions, labeled by outcome.",
			},
			[]string{"outcome"},
		)
	})
}

// ObserveFetch records one backend query.
func ObserveFetch(op, outcome string, d time.Duration) {
	Init()
	fetchDurationSeconds.WithLabelValues(op, outcome).Observe(d.Seconds())
}

// RecordRender counts a finished render.
func RecordRender(kind, outcome string) {
	Init()
	rendersTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordDropped counts a render request that did not run.
func RecordDropped(reason string) {
	Init()
	rendersDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordEmbedInit counts an embed client construction attempt.
func RecordEmbedInit(outcome string) {
	Init()
	embedInitTotal.WithLabelValues(outcome).Inc()
}

// RecordContact counts a contact form submission.
func RecordContact(outcome string) {
	Init()
	contactTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}
