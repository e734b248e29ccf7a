// Package metrics provides Prometheus metrics for the QA pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

const namespace = "gdprqa"

// Ensure implementations satisfy the interface.
var (
	_ driven.Metrics = (*Prometheus)(nil)
	_ driven.Metrics = Nop{}
)

// Prometheus records metrics in its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	DocumentsExtracted *prometheus.CounterVec
	Chunks             prometheus.Counter
	BatchesIndexed     prometheus.Counter
	RowsIndexed        prometheus.Counter
	BatchDuration      prometheus.Histogram
	Searches           prometheus.Counter
	SearchResults      prometheus.Histogram
	SearchDuration     prometheus.Histogram
	Turns              *prometheus.CounterVec
}

// NewPrometheus creates and registers all metrics, plus the Go runtime and
// process collectors.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		DocumentsExtracted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_extracted_total",
			Help:      "Documents processed by the extractors, by outcome.",
		}, []string{"ok"}),
		Chunks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_produced_total",
			Help:      "Chunks produced by the chunker.",
		}),
		BatchesIndexed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_batches_total",
			Help:      "Embedding batches written to the vector store.",
		}),
		RowsIndexed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_rows_total",
			Help:      "Rows written to the vector store.",
		}),
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_batch_duration_seconds",
			Help:      "Time to embed and write one batch.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		Searches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Retrieval queries served.",
		}),
		SearchResults: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Results returned per query.",
			Buckets:   []float64{0, 1, 3, 5, 10, 20, 50},
		}),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Time to embed the query and search the table.",
			Buckets:   prometheus.DefBuckets,
		}),
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_turns_total",
			Help:      "Conversation turns, by outcome.",
		}, []string{"outcome"}),
	}
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) DocumentExtracted(ok bool) {
	p.DocumentsExtracted.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

func (p *Prometheus) ChunksProduced(n int) {
	p.Chunks.Add(float64(n))
}

func (p *Prometheus) BatchIndexed(size int, took time.Duration) {
	p.BatchesIndexed.Inc()
	p.RowsIndexed.Add(float64(size))
	p.BatchDuration.Observe(took.Seconds())
}

func (p *Prometheus) SearchServed(results int, took time.Duration) {
	p.Searches.Inc()
	p.SearchResults.Observe(float64(results))
	p.SearchDuration.Observe(took.Seconds())
}

func (p *Prometheus) TurnCompleted(outcome string) {
	p.Turns.WithLabelValues(outcome).Inc()
}

// Nop discards all metrics.
type Nop struct{}

func (Nop) DocumentExtracted(bool) {}
func (Nop) ChunksProduced(int) {}
func (Nop) BatchIndexed(int, time.Duration) {}
func (Nop) SearchServed(int, time.Duration) {}
func (Nop) TurnCompleted(string) {}
