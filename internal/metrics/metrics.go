// Package metrics exposes Prometheus metrics for the ingestion pipeline and
// vector indexing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the backend's Prometheus collectors. Each instance carries
// its own registry so construction is safe to repeat.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	ArticlesNew     prometheus.Counter
	ArticlesSkipped prometheus.Counter
	VectorsAdded    prometheus.Counter
	VectorsSkipped  prometheus.Counter
	QuestionsAsked  *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "novaiq_ingestion_runs_total",
			Help: "Total ingestion runs by terminal status",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "novaiq_ingestion_run_duration_seconds",
			Help:    "Wall-clock duration of one ingestion run",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		ArticlesNew: factory.NewCounter(prometheus.CounterOpts{
			Name: "novaiq_articles_ingested_total",
			Help: "Total new articles persisted by ingestion runs",
		}),
		ArticlesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "novaiq_articles_skipped_total",
			Help: "Total fetched articles skipped as duplicates",
		}),
		VectorsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "novaiq_vectors_added_total",
			Help: "Total documents added to the vector index",
		}),
		VectorsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "novaiq_vectors_skipped_total",
			Help: "Total documents skipped by the vector index (already present or vectors disabled)",
		}),
		QuestionsAsked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "novaiq_questions_total",
			Help: "Total /ask questions by retrieval mode",
		}, []string{"retrieval"}),
	}
}

// Handler serves the /metrics endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records one terminal ingestion run.
func (m *Metrics) ObserveRun(status string, duration time.Duration, articlesNew, articlesSkipped, vectorsAdded, vectorsSkipped int) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(duration.Seconds())
	m.ArticlesNew.Add(float64(articlesNew))
	m.ArticlesSkipped.Add(float64(articlesSkipped))
	m.VectorsAdded.Add(float64(vectorsAdded))
	m.VectorsSkipped.Add(float64(vectorsSkipped))
}
