// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Retrieval outcomes recorded by RecordRetrieval.
const (
	OutcomeHit         = "hit"
	OutcomeNoContext   = "no_context"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
	OutcomeUnavailable = "not_ready"
)

var HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "manabu_http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var buildDuration = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "manabu_build_duration_seconds",
	Help: "Wall time of the last index build.",
})

var chunksIndexed = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "manabu_chunks_indexed",
	Help: "Number of chunks in the serving index.",
})

var filesSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "manabu_files_skipped_total",
	Help: "Corpus files skipped because they could not be parsed.",
})

var retrievalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "manabu_retrievals_total",
	Help: "Retrieval calls labelled by outcome.",
}, []string{"outcome"})

var retrievalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "manabu_retrieval_duration_seconds",
	Help:    "Time spent embedding the query and searching the index.",
	Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "manabu_dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

// StatusRecorder captures the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func RecordBuild(elapsed time.Duration, chunks, skipped int) {
	buildDuration.Set(elapsed.Seconds())
	chunksIndexed.Set(float64(chunks))
	filesSkipped.Add(float64(skipped))
}

func RecordRetrieval(outcome string, elapsed time.Duration) {
	retrievalsTotal.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		retrievalDuration.Observe(elapsed.Seconds())
	}
}

// CaptureDependencyLatency records the duration of a call to an external service
// ("openai_embeddings", "gemini_generate", ...).
func CaptureDependencyLatency(service string, elapsed time.Duration) {
	dependencyLatency.WithLabelValues(service).Observe(elapsed.Seconds())
}
