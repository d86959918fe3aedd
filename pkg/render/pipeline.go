package render

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mermaidlive/pkg/diagram"
	"github.com/matzehuels/mermaidlive/pkg/observability"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultDebounce is the quiescence delay applied by Request.
	DefaultDebounce = 250 * time.Millisecond

	// DefaultTimeout bounds a single render.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency bounds parallel block renders in Embedded mode.
	DefaultConcurrency = 4
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for dispatch and discard debug output.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithDebounce sets the delay Request waits for input to settle.
// Zero dispatches immediately.
func WithDebounce(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.debounce = d
		}
	}
}

// WithTimeout bounds each render. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.timeout = d
		}
	}
}

// WithConcurrency bounds parallel block renders in Embedded mode.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLanguage sets the code block language tag located in document HTML.
func WithLanguage(lang string) Option {
	return func(p *Pipeline) {
		if lang != "" {
			p.lang = lang
		}
	}
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline dispatches tokened renders and applies only the newest result.
// It is safe for concurrent use.
type Pipeline struct {
	renderer    Renderer
	markup      Markup
	logger      *log.Logger
	debounce    time.Duration
	timeout     time.Duration
	concurrency int
	lang        string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	latest     uint64
	timer      *time.Timer
	timerGen   uint64
	pending    Input
	dispatched *Input
	current    *Result
	applied    chan struct{}
	closed     bool
	subs       map[int]func(Result)
	nextSub    int

	// deliverMu is held from the token check until subscribers return, so
	// that results are applied and observed in dispatch order.
	deliverMu sync.Mutex
}

// NewPipeline creates a pipeline over the given services.
func NewPipeline(r Renderer, m Markup, opts ...Option) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		renderer:    r,
		markup:      m,
		logger:      log.NewWithOptions(io.Discard, log.Options{}),
		debounce:    DefaultDebounce,
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
		lang:        diagram.DefaultLanguage,
		ctx:         ctx,
		cancel:      cancel,
		applied:     make(chan struct{}),
		subs:        make(map[int]func(Result)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Request schedules a render of in after the debounce delay. A newer
// Request before the delay elapses replaces in and restarts the delay.
// Input identical to the last dispatched one is not rendered again.
func (p *Pipeline) Request(in Input) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.pending = in
	if p.debounce <= 0 {
		p.fireLocked()
		return
	}
	p.stopTimerLocked()
	p.timerGen++
	gen := p.timerGen
	p.timer = time.AfterFunc(p.debounce, func() { p.fire(gen) })
}

// Dispatch renders in immediately, dropping any pending request, and
// returns the token assigned to it. It returns 0 after Close.
func (p *Pipeline) Dispatch(in Input) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	p.stopTimerLocked()
	return p.dispatchLocked(in)
}

// Refresh re-renders the most recent input immediately, including a
// pending one. It returns 0 if nothing was ever requested.
func (p *Pipeline) Refresh() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	in := p.pending
	if p.timer == nil {
		if p.dispatched == nil {
			return 0
		}
		in = *p.dispatched
	}
	p.stopTimerLocked()
	return p.dispatchLocked(in)
}

// Flush dispatches a pending request now instead of waiting for the
// debounce delay, and returns the latest token. Unchanged input is still
// not rendered again.
func (p *Pipeline) Flush() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return p.latest
	}
	if p.timer != nil {
		p.stopTimerLocked()
		p.fireLocked()
	}
	return p.latest
}

// Subscribe registers fn to receive every applied result. fn runs on the
// render goroutine and must not call Close.
func (p *Pipeline) Subscribe(fn func(Result)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Current returns the last applied result.
func (p *Pipeline) Current() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Result{}, false
	}
	return *p.current, true
}

// Latest returns the most recently dispatched token.
func (p *Pipeline) Latest() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Wait blocks until a result with a token greater than after is applied,
// then returns it.
func (p *Pipeline) Wait(ctx context.Context, after uint64) (Result, error) {
	for {
		p.mu.Lock()
		if p.current != nil && p.current.Token > after {
			res := *p.current
			p.mu.Unlock()
			return res, nil
		}
		ch := p.applied
		closed := p.closed
		p.mu.Unlock()

		if closed {
			return Result{}, context.Canceled
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
}

// Close stops pending requests, cancels in-flight renders and waits for
// their goroutines to exit. Results that arrive after Close are discarded.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.stopTimerLocked()
	close(p.applied)
	p.applied = make(chan struct{})
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	return nil
}

// fire runs when the debounce timer of generation gen expires. A timer
// that was stopped or replaced after it had already fired does nothing.
func (p *Pipeline) fire(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.timer == nil || p.timerGen != gen {
		return
	}
	p.timer = nil
	p.fireLocked()
}

func (p *Pipeline) fireLocked() {
	if p.dispatched != nil && *p.dispatched == p.pending {
		p.logger.Debug("render skipped, input unchanged", "token", p.latest)
		return
	}
	p.dispatchLocked(p.pending)
}

func (p *Pipeline) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Pipeline) dispatchLocked(in Input) uint64 {
	p.latest++
	token := p.latest
	p.dispatched = &in
	p.logger.Debug("render dispatched", "token", token, "mode", in.Mode)

	p.wg.Add(1)
	go p.run(token, in)
	return token
}

func (p *Pipeline) run(token uint64, in Input) {
	defer p.wg.Done()

	ctx := p.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	mode := in.Mode.String()
	observability.Pipeline().OnRenderStart(ctx, token, mode)
	res := p.Render(ctx, in)
	res.Token = token

	var err error
	if !res.OK() {
		err = renderError(res.Message)
	}
	observability.Pipeline().OnRenderComplete(ctx, token, mode, res.Elapsed, err)

	p.deliver(res)
}

// deliver applies res if its token is still the latest and notifies
// subscribers. Stale results are dropped.
func (p *Pipeline) deliver(res Result) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if p.closed || res.Token != p.latest {
		latest := p.latest
		p.mu.Unlock()
		p.logger.Debug("render discarded", "token", res.Token, "latest", latest)
		observability.Pipeline().OnRenderDiscarded(p.ctx, res.Token, latest)
		return
	}
	p.current = &res
	close(p.applied)
	p.applied = make(chan struct{})
	subs := make([]func(Result), 0, len(p.subs))
	for _, s := range p.subs {
		subs = append(subs, s)
	}
	p.mu.Unlock()

	p.logger.Debug("render applied", "token", res.Token, "status", res.Status, "elapsed", res.Elapsed)
	for _, s := range subs {
		s(res)
	}
}

type renderError string

func (e renderError) Error() string { return string(e) }
