package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// Stats counts pipeline and cache events in memory. It implements
// [PipelineHooks] and [CacheHooks] and is safe for concurrent use.
type Stats struct {
	started time.Time

	extractions atomic.Int64
	renders     atomic.Int64
	failures    atomic.Int64
	discarded   atomic.Int64
	renderTime  atomic.Int64 // nanoseconds over all completed renders

	hits   atomic.Int64
	misses atomic.Int64
	writes atomic.Int64
}

var (
	_ PipelineHooks = (*Stats)(nil)
	_ CacheHooks    = (*Stats)(nil)
)

// NewStats returns zeroed counters.
func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

func (s *Stats) OnExtract(context.Context, int, time.Duration) { s.extractions.Add(1) }
func (s *Stats) OnRenderStart(context.Context, uint64, string) {}

func (s *Stats) OnRenderComplete(_ context.Context, _ uint64, _ string, d time.Duration, err error) {
	s.renders.Add(1)
	s.renderTime.Add(int64(d))
	if err != nil {
		s.failures.Add(1)
	}
}

func (s *Stats) OnRenderDiscarded(context.Context, uint64, uint64) { s.discarded.Add(1) }

func (s *Stats) OnCacheHit(context.Context, string)      { s.hits.Add(1) }
func (s *Stats) OnCacheMiss(context.Context, string)     { s.misses.Add(1) }
func (s *Stats) OnCacheSet(context.Context, string, int) { s.writes.Add(1) }

// StatsSnapshot is a point-in-time copy of [Stats].
type StatsSnapshot struct {
	Uptime      time.Duration `json:"uptime"`
	Extractions int64         `json:"extractions"`
	Renders     int64         `json:"renders"`
	Failures    int64         `json:"failures"`
	Discarded   int64         `json:"discarded"`
	MeanRender  time.Duration `json:"mean_render"`
	CacheHits   int64         `json:"cache_hits"`
	CacheMisses int64         `json:"cache_misses"`
	CacheWrites int64         `json:"cache_writes"`
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Uptime:      time.Since(s.started).Round(time.Second),
		Extractions: s.extractions.Load(),
		Renders:     s.renders.Load(),
		Failures:    s.failures.Load(),
		Discarded:   s.discarded.Load(),
		CacheHits:   s.hits.Load(),
		CacheMisses: s.misses.Load(),
		CacheWrites: s.writes.Load(),
	}
	if snap.Renders > 0 {
		snap.MeanRender = time.Duration(s.renderTime.Load() / snap.Renders)
	}
	return snap
}
