// Package metrics exposes Prometheus instrumentation for the instance
// pool and the filtered-retrieval pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	poolConstructions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stratum",
			Name:      "pool_constructions_total",
			Help:      "Engine constructions by outcome",
		},
		[]string{"outcome"},
	)

	poolCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stratum",
			Name:      "pool_cache_hits_total",
			Help:      "Pool lookups served from cache",
		},
	)

	poolEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stratum",
			Name:      "pool_evictions_total",
			Help:      "Engines evicted from the pool",
		},
	)

	poolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stratum",
			Name:      "pool_size",
			Help:      "Engines currently cached",
		},
	)

	retrievalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stratum",
			Name:      "retrieval_requests_total",
			Help:      "Filtered-retrieval requests by outcome",
		},
		[]string{"outcome"},
	)

	retrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stratum",
			Name:      "retrieval_duration_seconds",
			Help:      "Filtered-retrieval request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	retrievalChunks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stratum",
			Name:      "retrieval_chunks_returned",
			Help:      "Chunks returned per retrieval request",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)
)

func init() {
	prometheus.MustRegister(poolConstructions)
	prometheus.MustRegister(poolCacheHits)
	prometheus.MustRegister(poolEvictions)
	prometheus.MustRegister(poolSize)
	prometheus.MustRegister(retrievalRequests)
	prometheus.MustRegister(retrievalDuration)
	prometheus.MustRegister(retrievalChunks)
}

// PoolConstruction records one engine construction attempt.
func PoolConstruction(err error) {
	if err != nil {
		poolConstructions.WithLabelValues("error").Inc()
		return
	}
	poolConstructions.WithLabelValues("success").Inc()
}

// PoolCacheHit records a pool lookup served from cache.
func PoolCacheHit() {
	poolCacheHits.Inc()
}

// PoolEviction records an engine leaving the pool.
func PoolEviction() {
	poolEvictions.Inc()
}

// PoolSize records the current number of cached engines.
func PoolSize(n int) {
	poolSize.Set(float64(n))
}

// RetrievalObserved records one finished retrieval request.
func RetrievalObserved(start time.Time, chunksReturned int, err error) {
	retrievalDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		retrievalRequests.WithLabelValues("error").Inc()
		return
	}
	retrievalRequests.WithLabelValues("success").Inc()
	retrievalChunks.Observe(float64(chunksReturned))
}
