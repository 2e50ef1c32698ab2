package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of cache hits by tier",
	}, []string{"tier"})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of lookups that missed both tiers",
	})

	CacheStores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_stores_total",
		Help: "Total number of cache store operations",
	})

	CacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_invalidations_total",
		Help: "Total number of entries removed by bulk invalidation",
	}, []string{"tier"})

	DiskWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_disk_write_errors_total",
		Help: "Total number of failed disk tier writes",
	})

	DiskFileDeletions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_disk_file_deletions_total",
		Help: "Total number of cache files deleted after eviction",
	})

	TileGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tile_generations_total",
		Help: "Total number of tile generations by kind and result",
	}, []string{"kind", "result"})

	TileGenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tile_generation_duration_seconds",
		Help:    "Duration of tile generation in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	UpstreamLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tiles_upstream_latency_seconds",
		Help:    "Latency of upstream DEM and photo fetches in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
