package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts API requests by route, method and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifeos",
		Name:      "http_requests_total",
		Help:      "HTTP requests handled by the API.",
	}, []string{"route", "method", "status"})

	// EmbeddingRequests counts provider calls by provider and outcome (ok, error, invalid).
	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifeos",
		Name:      "embedding_requests_total",
		Help:      "Embedding provider calls.",
	}, []string{"provider", "outcome"})

	// EmbeddingCache counts query embedding cache lookups by result (hit, miss, error).
	EmbeddingCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifeos",
		Name:      "embedding_cache_total",
		Help:      "Query embedding cache lookups.",
	}, []string{"result"})

	// IndexedNotes counts index outcomes by status (skipped, empty, success, failed).
	IndexedNotes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifeos",
		Name:      "indexed_notes_total",
		Help:      "Notes processed by the indexer.",
	}, []string{"status"})

	// StreamEvents counts relay events by type.
	StreamEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifeos",
		Name:      "stream_events_total",
		Help:      "Events emitted on answer streams.",
	}, []string{"type"})

	// RetrievedContexts observes how many contexts survive the relevance floor.
	RetrievedContexts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lifeos",
		Name:      "retrieved_contexts",
		Help:      "Contexts returned per retrieval.",
		Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
	})
)
