package filter

import "github.com/rcrowley/go-metrics"

// Metric names registered by the stock filters.
const (
	MetricCacheHits     = "filter.caching.hits"
	MetricCacheMisses   = "filter.caching.misses"
	MetricCacheErrors   = "filter.caching.errors"
	MetricMergedCalls   = "filter.merging.merged"
	MetricForwarded     = "filter.merging.forwarded"
	MetricBatchSize     = "filter.batching.size"
	MetricBatchFailures = "filter.batching.failures"
)

const histogramReservoir = 1028

func counter(name string, r metrics.Registry) metrics.Counter {
	return metrics.GetOrRegisterCounter(name, r)
}

func histogram(name string, r metrics.Registry) metrics.Histogram {
	return metrics.GetOrRegisterHistogram(name, r, metrics.NewUniformSample(histogramReservoir))
}
