package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	WalkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mosaicmap_walk_seconds",
		Help:    "Time spent discovering candidate files.",
		Buckets: prometheus.DefBuckets,
	})

	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mosaicmap_parse_seconds",
		Help:    "Time spent parsing and extracting a single source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mosaicmap_resolve_seconds",
		Help:    "Time spent on Phase 2 reference resolution.",
		Buckets: prometheus.DefBuckets,
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mosaicmap_analysis_seconds",
		Help:    "Time spent on a single derived analyzer.",
		Buckets: prometheus.DefBuckets,
	}, []string{"analyzer"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaicmap_cache_hits_total",
		Help: "Files whose fast-path size+mtime check matched the cache entry.",
	})

	CacheDeepChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaicmap_cache_deep_checks_total",
		Help: "Files that fell through to a content-hash deep check.",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaicmap_cache_misses_total",
		Help: "Files reparsed because no usable cache entry was found.",
	})

	FilesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mosaicmap_files_skipped_total",
		Help: "Files excluded from the capture, by skip reason.",
	}, []string{"reason"})

	FilesParsedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mosaicmap_files_parsed_total",
		Help: "Files successfully parsed, by language.",
	}, []string{"language"})

	SymbolsExtractedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mosaicmap_symbols_extracted_total",
		Help: "Symbols extracted, by kind.",
	}, []string{"kind"})

	ClustersFound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mosaicmap_clusters_found",
		Help: "Number of clusters surviving the affinity threshold and singleton discard.",
	})

	HotspotsByTier = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mosaicmap_hotspots_by_tier",
		Help: "Number of functions in each hotspot tier.",
	}, []string{"tier"})
)
