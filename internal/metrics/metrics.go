// Package metrics exposes ingestion counters through a private prometheus
// registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bowerhall/graphcol/internal/graphcol"
)

// Collector holds all Prometheus metrics for the loader
type Collector struct {
	registry *prometheus.Registry

	TriplesWritten *prometheus.CounterVec
	ChunksUploaded *prometheus.CounterVec
	ChunkFailures  *prometheus.CounterVec
	BytesWritten   *prometheus.CounterVec
	UploadDuration *prometheus.HistogramVec
	Runs           *prometheus.CounterVec
	LastSuccess    *prometheus.GaugeVec
}

// NewCollector creates a collector registered on its own registry.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		TriplesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triples_written_total",
			Help:      "Triples stored in uploaded chunks",
		}, []string{"dataset"}),
		ChunksUploaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_uploaded_total",
			Help:      "Chunks accepted by the sink",
		}, []string{"dataset"}),
		ChunkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_upload_failures_total",
			Help:      "Chunks the sink failed to store",
		}, []string{"dataset"}),
		BytesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Encoded chunk bytes uploaded",
		}, []string{"dataset"}),
		UploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_upload_duration_seconds",
			Help:      "Time spent uploading one chunk",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"dataset"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Dataset runs by final status",
		}, []string{"dataset", "status"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_commit_timestamp_seconds",
			Help:      "Unix time of the last manifest written per dataset",
		}, []string{"dataset"}),
	}

	c.registry.MustRegister(
		c.TriplesWritten,
		c.ChunksUploaded,
		c.ChunkFailures,
		c.BytesWritten,
		c.UploadDuration,
		c.Runs,
		c.LastSuccess,
	)

	return c
}

// ObserveChunk records one upload attempt.
func (c *Collector) ObserveChunk(r graphcol.ChunkResult) {
	c.UploadDuration.WithLabelValues(r.Dataset).Observe(r.Duration.Seconds())

	if r.Err != nil {
		c.ChunkFailures.WithLabelValues(r.Dataset).Inc()
		return
	}

	c.ChunksUploaded.WithLabelValues(r.Dataset).Inc()
	c.TriplesWritten.WithLabelValues(r.Dataset).Add(float64(r.Triples))
	c.BytesWritten.WithLabelValues(r.Dataset).Add(float64(r.Bytes))
}

// ObserveRun records the outcome of a dataset run.
func (c *Collector) ObserveRun(dataset, status string, committedAt float64) {
	c.Runs.WithLabelValues(dataset, status).Inc()
	if committedAt > 0 {
		c.LastSuccess.WithLabelValues(dataset).Set(committedAt)
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
