package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "konvato_conversions_total",
	Help: "Number of conversion requests by bookmaker pair and outcome",
}, []string{"source", "destination", "outcome"})

var ConversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "konvato_conversion_duration_seconds",
	Help:    "Conversion duration by bookmaker pair",
	Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
}, []string{"source", "destination"})

var CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "konvato_cache_hits_total",
	Help: "Number of cache hits by data kind",
}, []string{"kind"})

var CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "konvato_cache_misses_total",
	Help: "Number of cache misses by data kind",
}, []string{"kind"})

var CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "konvato_cache_entries",
	Help: "Number of live entries in the in-process cache",
})

var AutomationTimeouts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "konvato_automation_timeouts_total",
	Help: "Number of automation attempts that exceeded their timeout",
})

var AutomationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "konvato_automation_attempts_total",
	Help: "Number of automation attempts by result",
}, []string{"result"})

var RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
	Name: "konvato_rate_limit_rejections_total",
	Help: "Number of requests rejected by the rate limiter",
})

var RetentionDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "konvato_retention_deletes_total",
	Help: "Number of persistent records removed by the retention sweep",
}, []string{"kind"})
