// Package metrics exposes Prometheus collectors for the memory engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "recall"
)

// Result label values.
const (
	ResultOK        = "ok"
	ResultDuplicate = "duplicate"
	ResultError     = "error"
)

var (
	// MemoriesIngested counts ingestion attempts by result.
	MemoriesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memories_ingested_total",
			Help:      "Total number of memory ingestion attempts",
		},
		[]string{"result"},
	)

	// Retrievals counts retrieval calls by result.
	Retrievals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Total number of similarity retrievals",
		},
		[]string{"result"},
	)

	// RetrievedEntries tracks how many entries a retrieval resolved.
	RetrievedEntries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieved_entries",
			Help:      "Number of entries resolved per retrieval",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
	)

	// IndexVectors reports the current vector index size.
	IndexVectors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_vectors",
			Help:      "Number of vectors in the in-memory index",
		},
	)

	// EmbeddingLatency tracks embedding collaborator latency.
	EmbeddingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_latency_seconds",
			Help:      "Embedding call latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"purpose"},
	)

	// GraphBuilds counts keyword graph builds by result.
	GraphBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_builds_total",
			Help:      "Total number of keyword graph builds",
		},
		[]string{"result"},
	)
)
