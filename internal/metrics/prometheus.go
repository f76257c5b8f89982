package metrics

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsPartitioned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventgraph_events_partitioned_total",
			Help: "Events processed by a partitioner, by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	PartitionsCreated = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventgraph_partitions_created",
			Help:    "Partitions produced per partitioning run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"strategy"},
	)

	GraphNodes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventgraph_graph_nodes",
			Help:    "Retained nodes per built graph",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	GraphEdges = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventgraph_graph_edges",
			Help:    "Directed edges per built graph",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		},
	)

	WindowsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventgraph_windows_emitted_total",
			Help: "Temporal windows emitted, by task",
		},
		[]string{"task"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventgraph_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"stage"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventgraph_cache_hits_total",
			Help: "Static feature cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventgraph_cache_misses_total",
			Help: "Static feature cache misses",
		},
		[]string{"cache_type"},
	)
)

var initOnce sync.Once

// Init registers every collector with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(EventsPartitioned)
		prometheus.MustRegister(PartitionsCreated)
		prometheus.MustRegister(GraphNodes)
		prometheus.MustRegister(GraphEdges)
		prometheus.MustRegister(WindowsEmitted)
		prometheus.MustRegister(StageDuration)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
	})
}

// Handler exposes the default registry for gin.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
