package observability

import (
	"context"
	"sync"
	"testing"
	"time"
)

type countingPipeline struct {
	NoopPipelineHooks
	mu       sync.Mutex
	started  []uint64
	finished []uint64
}

func (c *countingPipeline) OnRenderStart(_ context.Context, token uint64, _ string) {
	c.mu.Lock()
	c.started = append(c.started, token)
	c.mu.Unlock()
}

func (c *countingPipeline) OnRenderComplete(_ context.Context, token uint64, _ string, _ time.Duration, _ error) {
	c.mu.Lock()
	c.finished = append(c.finished, token)
	c.mu.Unlock()
}

type namedCache struct{ NoopCacheHooks }
type namedHTTP struct{ NoopHTTPHooks }

func TestRegistryDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	ctx := context.Background()
	Pipeline().OnRenderStart(ctx, 1, "standalone")
	Pipeline().OnRenderDiscarded(ctx, 1, 2)
	Cache().OnCacheSet(ctx, "artifact", 512)
	HTTP().OnResponse(ctx, "POST", "kroki.io", "/mermaid/svg", 200, time.Second)

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Errorf("Pipeline() = %T after Reset", Pipeline())
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Errorf("Cache() = %T after Reset", Cache())
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Errorf("HTTP() = %T after Reset", HTTP())
	}
}

func TestRegistrySetIsIndependent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	p := &countingPipeline{}
	c := &namedCache{}
	h := &namedHTTP{}

	SetPipelineHooks(p)
	SetCacheHooks(c)
	SetHTTPHooks(h)
	SetCacheHooks(nil)

	if Pipeline() != PipelineHooks(p) {
		t.Error("pipeline hooks not installed")
	}
	if Cache() != CacheHooks(c) {
		t.Error("nil cache hooks replaced the installed ones")
	}
	if HTTP() != HTTPHooks(h) {
		t.Error("http hooks lost after cache update")
	}

	Pipeline().OnRenderStart(context.Background(), 7, "document")
	Pipeline().OnRenderComplete(context.Background(), 7, "document", time.Millisecond, nil)
	if len(p.started) != 1 || p.started[0] != 7 || len(p.finished) != 1 {
		t.Errorf("started = %v, finished = %v", p.started, p.finished)
	}
}

func TestRegistryConcurrentUpdates(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	p := &countingPipeline{}
	c := &namedCache{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetPipelineHooks(p)
			Pipeline().OnRenderStart(context.Background(), 1, "standalone")
		}()
		go func() {
			defer wg.Done()
			SetCacheHooks(c)
			_ = Cache()
		}()
	}
	wg.Wait()

	// Each setter only touches its own slot, so neither update may be lost.
	if Pipeline() != PipelineHooks(p) {
		t.Errorf("Pipeline() = %T", Pipeline())
	}
	if Cache() != CacheHooks(c) {
		t.Errorf("Cache() = %T", Cache())
	}
}
