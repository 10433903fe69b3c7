// Package prom implements the observability hooks with Prometheus
// collectors.
//
// Batch runs are short-lived, so metrics are not served over HTTP. Register
// the hooks, run the batch, then call [Metrics.WriteTextfile] and let a
// node_exporter textfile collector pick the file up.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/watershed/pkg/observability"
)

const namespace = "watershed"

// Metrics collects run, cache and raster events.
type Metrics struct {
	registry *prometheus.Registry

	regions        *prometheus.CounterVec
	regionDuration prometheus.Histogram
	outlets        *prometheus.CounterVec
	outletDuration *prometheus.HistogramVec

	cacheEvents *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec
	datasetLoad *prometheus.HistogramVec

	splits        *prometheus.CounterVec
	splitDuration prometheus.Histogram
}

// New creates Metrics backed by a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		regions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_total",
			Help:      "Level-2 regions processed, by outcome.",
		}, []string{"outcome"}),
		regionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "region_duration_seconds",
			Help:      "Wall time spent on one region.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		outlets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outlets_total",
			Help:      "Outlets processed, by result and failure reason.",
		}, []string{"result", "reason"}),
		outletDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outlet_duration_seconds",
			Help:      "Wall time spent delineating one outlet.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"result"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_cache_events_total",
			Help:      "Dataset artifact cache hits, misses and writes.",
		}, []string{"kind", "event"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_cache_written_bytes_total",
			Help:      "Bytes of dataset artifacts written to the cache.",
		}, []string{"kind"}),
		datasetLoad: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_seconds",
			Help:      "Time to make a regional dataset available.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"kind", "outcome"}),
		splits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raster_splits_total",
			Help:      "Raster delineation calls, by outcome.",
		}, []string{"outcome"}),
		splitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "raster_split_duration_seconds",
			Help:      "Wall time of one raster delineation call.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	m.registry.MustRegister(
		m.regions, m.regionDuration, m.outlets, m.outletDuration,
		m.cacheEvents, m.cacheBytes, m.datasetLoad,
		m.splits, m.splitDuration,
	)
	return m
}

// Register installs m as the global run, cache and raster hooks.
func (m *Metrics) Register() {
	observability.SetRunHooks(m)
	observability.SetCacheHooks(m)
	observability.SetRasterHooks(m)
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// OnRegionStart implements observability.RunHooks.
func (m *Metrics) OnRegionStart(context.Context, int, int) {}

// OnRegionComplete implements observability.RunHooks.
func (m *Metrics) OnRegionComplete(_ context.Context, _ int, d time.Duration, err error) {
	m.regions.WithLabelValues(outcome(err)).Inc()
	m.regionDuration.Observe(d.Seconds())
}

// OnOutletComplete implements observability.RunHooks.
func (m *Metrics) OnOutletComplete(_ context.Context, _ int, result, reason string, d time.Duration) {
	m.outlets.WithLabelValues(result, reason).Inc()
	m.outletDuration.WithLabelValues(result).Observe(d.Seconds())
}

// OnCacheHit implements observability.CacheHooks.
func (m *Metrics) OnCacheHit(_ context.Context, kind string) {
	m.cacheEvents.WithLabelValues(kind, "hit").Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (m *Metrics) OnCacheMiss(_ context.Context, kind string) {
	m.cacheEvents.WithLabelValues(kind, "miss").Inc()
}

// OnCacheSet implements observability.CacheHooks.
func (m *Metrics) OnCacheSet(_ context.Context, kind string, size int) {
	m.cacheEvents.WithLabelValues(kind, "set").Inc()
	m.cacheBytes.WithLabelValues(kind).Add(float64(size))
}

// OnDatasetLoad implements observability.CacheHooks.
func (m *Metrics) OnDatasetLoad(_ context.Context, kind string, d time.Duration, err error) {
	m.datasetLoad.WithLabelValues(kind, outcome(err)).Observe(d.Seconds())
}

// OnSplitStart implements observability.RasterHooks.
func (m *Metrics) OnSplitStart(context.Context, string) {}

// OnSplitComplete implements observability.RasterHooks.
func (m *Metrics) OnSplitComplete(_ context.Context, _ string, ok bool, d time.Duration, err error) {
	switch {
	case err != nil:
		m.splits.WithLabelValues("error").Inc()
	case !ok:
		m.splits.WithLabelValues("empty").Inc()
	default:
		m.splits.WithLabelValues("ok").Inc()
	}
	m.splitDuration.Observe(d.Seconds())
}

var (
	_ observability.RunHooks    = (*Metrics)(nil)
	_ observability.CacheHooks  = (*Metrics)(nil)
	_ observability.RasterHooks = (*Metrics)(nil)
)
