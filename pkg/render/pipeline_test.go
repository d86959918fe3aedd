package render

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/mermaidlive/pkg/editor"
	"github.com/matzehuels/mermaidlive/pkg/observability"
)

type discardRecorder struct {
	observability.NoopPipelineHooks
	discarded chan uint64
}

func (d *discardRecorder) OnRenderDiscarded(_ context.Context, token, _ uint64) {
	d.discarded <- token
}

func standalone(src string) Input {
	return Input{Mode: editor.Standalone, Standalone: src}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStaleResultDiscarded(t *testing.T) {
	rec := &discardRecorder{discarded: make(chan uint64, 1)}
	observability.SetPipelineHooks(rec)
	defer observability.Reset()

	gate := make(chan struct{})
	r := &fakeRenderer{gates: map[string]chan struct{}{"slow": gate}}
	p := NewPipeline(r, fenceMarkup)
	defer p.Close()

	var (
		mu   sync.Mutex
		seen []uint64
	)
	p.Subscribe(func(res Result) {
		mu.Lock()
		seen = append(seen, res.Token)
		mu.Unlock()
	})

	t1 := p.Dispatch(standalone("slow"))
	t2 := p.Dispatch(standalone("fast"))
	if t2 <= t1 {
		t.Fatalf("tokens not increasing: %d then %d", t1, t2)
	}

	res, err := p.Wait(waitCtx(t), 0)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Token != t2 || res.Artifact != "<svg>fast</svg>" {
		t.Fatalf("applied %+v, want token %d", res, t2)
	}

	close(gate)
	select {
	case tok := <-rec.discarded:
		if tok != t1 {
			t.Errorf("discarded token %d, want %d", tok, t1)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("slow render was never discarded")
	}

	cur, _ := p.Current()
	if cur.Token != t2 {
		t.Errorf("current token = %d, want %d", cur.Token, t2)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != t2 {
		t.Errorf("subscriber saw %v, want [%d]", seen, t2)
	}
}

func TestAppliedTokensIncrease(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	delays := make(map[string]time.Duration)
	r := RendererFunc(func(ctx context.Context, id, source string) ([]byte, error) {
		time.Sleep(delays[source])
		return []byte(source), nil
	})

	inputs := make([]string, 20)
	for i := range inputs {
		inputs[i] = string(rune('a' + i))
		delays[inputs[i]] = time.Duration(rng.Intn(20)) * time.Millisecond
	}

	p := NewPipeline(r, fenceMarkup)
	var (
		mu   sync.Mutex
		seen []uint64
	)
	p.Subscribe(func(res Result) {
		mu.Lock()
		seen = append(seen, res.Token)
		mu.Unlock()
	})

	var last uint64
	for _, in := range inputs {
		last = p.Dispatch(standalone(in))
	}
	res, err := p.Wait(waitCtx(t), last-1)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	p.Close()

	if res.Token != last || res.Artifact != inputs[len(inputs)-1] {
		t.Errorf("final result %+v, want token %d", res, last)
	}
	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Fatalf("applied tokens not increasing: %v", seen)
		}
	}
}

func TestRequestDebounceCoalesces(t *testing.T) {
	r := &fakeRenderer{}
	p := NewPipeline(r, fenceMarkup, WithDebounce(30*time.Millisecond))
	defer p.Close()

	for _, src := range []string{"g", "gr", "gra", "grap", "graph"} {
		p.Request(standalone(src))
	}
	res, err := p.Wait(waitCtx(t), 0)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Artifact != "<svg>graph</svg>" {
		t.Errorf("artifact = %q", res.Artifact)
	}
	if n := r.callCount(); n != 1 {
		t.Errorf("renderer called %d times, want 1", n)
	}
	if p.Latest() != 1 {
		t.Errorf("Latest() = %d, want 1", p.Latest())
	}
}

func TestRequestSkipsUnchangedInput(t *testing.T) {
	r := &fakeRenderer{}
	p := NewPipeline(r, fenceMarkup, WithDebounce(0))
	defer p.Close()

	p.Request(standalone("graph TD"))
	if _, err := p.Wait(waitCtx(t), 0); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	p.Request(standalone("graph TD"))
	if p.Latest() != 1 {
		t.Errorf("unchanged input dispatched again, Latest() = %d", p.Latest())
	}

	tok := p.Refresh()
	if tok != 2 {
		t.Fatalf("Refresh() = %d, want 2", tok)
	}
	if _, err := p.Wait(waitCtx(t), 1); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n := r.callCount(); n != 2 {
		t.Errorf("renderer called %d times, want 2", n)
	}
}

func TestRefreshWithoutInput(t *testing.T) {
	p := NewPipeline(&fakeRenderer{}, fenceMarkup)
	defer p.Close()
	if tok := p.Refresh(); tok != 0 {
		t.Errorf("Refresh() = %d, want 0", tok)
	}
}

func TestDispatchDropsPendingRequest(t *testing.T) {
	r := &fakeRenderer{}
	p := NewPipeline(r, fenceMarkup, WithDebounce(20*time.Millisecond))
	defer p.Close()

	p.Request(standalone("pending"))
	tok := p.Dispatch(standalone("now"))
	res, err := p.Wait(waitCtx(t), tok-1)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	if res.Artifact != "<svg>now</svg>" {
		t.Errorf("artifact = %q", res.Artifact)
	}
	if p.Latest() != tok {
		t.Errorf("pending request fired after Dispatch: Latest() = %d", p.Latest())
	}
}

func TestWaitTimeout(t *testing.T) {
	p := NewPipeline(&fakeRenderer{}, fenceMarkup)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := p.Wait(ctx, 0); err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestCloseCancelsInFlight(t *testing.T) {
	gate := make(chan struct{})
	r := &fakeRenderer{gates: map[string]chan struct{}{"stuck": gate}}
	p := NewPipeline(r, fenceMarkup)

	p.Dispatch(standalone("stuck"))
	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	if _, ok := p.Current(); ok {
		t.Error("result delivered after Close")
	}
	if tok := p.Dispatch(standalone("x")); tok != 0 {
		t.Errorf("Dispatch after Close = %d, want 0", tok)
	}
}

func TestRenderTimeout(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	r := &fakeRenderer{gates: map[string]chan struct{}{"stuck": gate}}
	p := NewPipeline(r, fenceMarkup, WithTimeout(10*time.Millisecond))
	defer p.Close()

	tok := p.Dispatch(standalone("stuck"))
	res, err := p.Wait(waitCtx(t), tok-1)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.OK() {
		t.Error("timed out render should fail")
	}
}

func TestFlushDispatchesPending(t *testing.T) {
	r := &fakeRenderer{}
	p := NewPipeline(r, fenceMarkup, WithDebounce(time.Hour))
	defer p.Close()

	if tok := p.Flush(); tok != 0 {
		t.Fatalf("Flush() with nothing pending = %d, want 0", tok)
	}
	p.Request(standalone("graph LR"))
	tok := p.Flush()
	if tok != 1 {
		t.Fatalf("Flush() = %d, want 1", tok)
	}
	res, err := p.Wait(waitCtx(t), tok-1)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Artifact != "<svg>graph LR</svg>" {
		t.Errorf("artifact = %q", res.Artifact)
	}
}

func TestStaleDebounceTimerIgnored(t *testing.T) {
	r := &fakeRenderer{}
	p := NewPipeline(r, fenceMarkup, WithDebounce(time.Hour))
	defer p.Close()

	p.Request(standalone("first"))
	p.mu.Lock()
	stale := p.timerGen
	p.mu.Unlock()

	p.Request(standalone("second"))

	// The first timer fired before the second Request replaced it.
	p.fire(stale)
	if got := p.Latest(); got != 0 {
		t.Fatalf("stale timer dispatched token %d", got)
	}

	if tok := p.Flush(); tok != 1 {
		t.Fatalf("Flush() = %d, want 1", tok)
	}
	res, err := p.Wait(waitCtx(t), 0)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Artifact != "<svg>second</svg>" {
		t.Errorf("artifact = %q", res.Artifact)
	}
	if n := r.callCount(); n != 1 {
		t.Errorf("renderer called %d times, want 1", n)
	}
}
