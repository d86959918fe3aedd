package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := NewStats()

	s.OnExtract(ctx, 2, time.Millisecond)
	s.OnRenderStart(ctx, 1, "standalone")
	s.OnRenderComplete(ctx, 1, "standalone", 10*time.Millisecond, nil)
	s.OnRenderComplete(ctx, 2, "standalone", 30*time.Millisecond, errors.New("Parse error"))
	s.OnRenderDiscarded(ctx, 1, 2)
	s.OnCacheMiss(ctx, "artifact")
	s.OnCacheSet(ctx, "artifact", 100)
	s.OnCacheHit(ctx, "artifact")
	s.OnCacheHit(ctx, "artifact")

	got := s.Snapshot()
	want := StatsSnapshot{
		Uptime:      got.Uptime,
		Extractions: 1,
		Renders:     2,
		Failures:    1,
		Discarded:   1,
		MeanRender:  20 * time.Millisecond,
		CacheHits:   2,
		CacheMisses: 1,
		CacheWrites: 1,
	}
	if got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
}

func TestStatsAsRegisteredHooks(t *testing.T) {
	Reset()
	defer Reset()

	s := NewStats()
	SetPipelineHooks(s)
	SetCacheHooks(s)

	Pipeline().OnRenderComplete(context.Background(), 1, "embedded", time.Millisecond, nil)
	Cache().OnCacheMiss(context.Background(), "export")

	snap := s.Snapshot()
	if snap.Renders != 1 || snap.CacheMisses != 1 {
		t.Errorf("registered stats not updated: %+v", snap)
	}
	if snap.MeanRender != time.Millisecond {
		t.Errorf("MeanRender = %v", snap.MeanRender)
	}
}
