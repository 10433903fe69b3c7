// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about delineation runs, dataset loading and raster calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, so library packages do not
// import a metrics backend. The prom subpackage is the bundled backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := prom.New()
//	    observability.SetRunHooks(m)
//	    observability.SetCacheHooks(m)
//	    observability.SetRasterHooks(m)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Run().OnRegionStart(ctx, region, len(outlets))
//	// ... delineate ...
//	observability.Run().OnRegionComplete(ctx, region, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Run Hooks
// =============================================================================

// RunHooks receives events from a delineation run.
type RunHooks interface {
	// Region events
	OnRegionStart(ctx context.Context, region int, outlets int)
	OnRegionComplete(ctx context.Context, region int, duration time.Duration, err error)

	// OnOutletComplete fires once per outlet. result is "high", "low" or
	// "failed"; reason is empty unless result is "failed".
	OnOutletComplete(ctx context.Context, region int, result, reason string, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from dataset loading.
type CacheHooks interface {
	// OnCacheHit records an artifact served from the side cache.
	OnCacheHit(ctx context.Context, kind string)

	// OnCacheMiss records an artifact that had to be derived from source.
	OnCacheMiss(ctx context.Context, kind string)

	// OnCacheSet records an artifact write.
	OnCacheSet(ctx context.Context, kind string, size int)

	// OnDatasetLoad records the time to make a dataset available, whatever
	// path served it.
	OnDatasetLoad(ctx context.Context, kind string, duration time.Duration, err error)
}

// =============================================================================
// Raster Hooks
// =============================================================================

// RasterHooks receives events from the raster delineation client.
type RasterHooks interface {
	// OnSplitStart records a call to the raster tool.
	OnSplitStart(ctx context.Context, outletID string)

	// OnSplitComplete records the outcome. ok is false when the tool ran but
	// produced no polygon.
	OnSplitComplete(ctx context.Context, outletID string, ok bool, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopRunHooks is a no-op implementation of RunHooks.
type NoopRunHooks struct{}

func (NoopRunHooks) OnRegionStart(context.Context, int, int)                              {}
func (NoopRunHooks) OnRegionComplete(context.Context, int, time.Duration, error)          {}
func (NoopRunHooks) OnOutletComplete(context.Context, int, string, string, time.Duration) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)                          {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)                         {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int)                     {}
func (NoopCacheHooks) OnDatasetLoad(context.Context, string, time.Duration, error) {}

// NoopRasterHooks is a no-op implementation of RasterHooks.
type NoopRasterHooks struct{}

func (NoopRasterHooks) OnSplitStart(context.Context, string)                                {}
func (NoopRasterHooks) OnSplitComplete(context.Context, string, bool, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	runHooks    RunHooks    = NoopRunHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	rasterHooks RasterHooks = NoopRasterHooks{}
	hooksMu     sync.RWMutex
)

// SetRunHooks registers custom run hooks.
// This should be called once at application startup before any run starts.
func SetRunHooks(h RunHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		runHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any dataset loads.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetRasterHooks registers custom raster hooks.
// This should be called once at application startup before any raster calls.
func SetRasterHooks(h RasterHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		rasterHooks = h
	}
}

// Run returns the registered run hooks.
func Run() RunHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return runHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Raster returns the registered raster hooks.
func Raster() RasterHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return rasterHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	runHooks = NoopRunHooks{}
	cacheHooks = NoopCacheHooks{}
	rasterHooks = NoopRasterHooks{}
}
