// Package observability provides hooks for metrics, tracing, and logging.
//
// Consumers register hooks at startup to receive events about render
// pipeline execution, block extraction, cache operations and calls to remote
// rendering services. Every category has a no-op default.
//
// # Usage
//
// Register hooks at application startup. [Stats] counts pipeline and cache
// events in memory:
//
//	stats := observability.NewStats()
//	observability.SetPipelineHooks(stats)
//	observability.SetCacheHooks(stats)
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnRenderStart(ctx, token, mode)
//	// ... render ...
//	observability.Pipeline().OnRenderComplete(ctx, token, mode, duration, err)
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the live render pipeline.
//
// Tokens are the monotonically increasing render tokens issued by the
// pipeline. A discarded render is one whose result arrived after a newer
// render had been requested.
type PipelineHooks interface {
	// Extraction events
	OnExtract(ctx context.Context, blocks int, duration time.Duration)

	// Render events
	OnRenderStart(ctx context.Context, token uint64, mode string)
	OnRenderComplete(ctx context.Context, token uint64, mode string, duration time.Duration, err error)
	OnRenderDiscarded(ctx context.Context, token, latest uint64)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnExtract(context.Context, int, time.Duration)     {}
func (NoopPipelineHooks) OnRenderStart(context.Context, uint64, string)     {}
func (NoopPipelineHooks) OnRenderDiscarded(context.Context, uint64, uint64) {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, uint64, string, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

// hookSet is replaced as a whole on every registration, so readers never
// need a lock.
type hookSet struct {
	pipeline PipelineHooks
	cache    CacheHooks
	http     HTTPHooks
}

var hooks atomic.Pointer[hookSet]

func init() { Reset() }

// update applies fn to a copy of the current set and publishes it.
func update(fn func(*hookSet)) {
	for {
		old := hooks.Load()
		next := *old
		fn(&next)
		if hooks.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetPipelineHooks registers custom pipeline hooks. A nil h is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		update(func(s *hookSet) { s.pipeline = h })
	}
}

// SetCacheHooks registers custom cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(s *hookSet) { s.cache = h })
	}
}

// SetHTTPHooks registers custom HTTP hooks. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(s *hookSet) { s.http = h })
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks { return hooks.Load().pipeline }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return hooks.Load().cache }

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks { return hooks.Load().http }

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooks.Store(&hookSet{
		pipeline: NoopPipelineHooks{},
		cache:    NoopCacheHooks{},
		http:     NoopHTTPHooks{},
	})
}
