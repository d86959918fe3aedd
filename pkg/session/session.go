// Package session binds an editor to a render pipeline for live editing.
//
// A [Session] owns one editor.Editor and one render.Pipeline. Every editor
// transition that changes what would be rendered (a buffer edit, a mode
// switch, a file load, a selection in Standalone mode) requests a debounced
// render of a snapshot of the editor's buffers. View changes never trigger
// renders.
//
// A [Store] keeps sessions in memory for the HTTP shell and expires idle
// ones:
//
//	store := session.NewStore(session.DefaultTTL)
//	sess := store.Create(session.Config{Renderer: r, Markup: m})
//	sess.Editor().EditStandalone("graph LR\n  A-->B")
//	res, err := sess.Pipeline().Wait(ctx, 0)
//
// Sessions are not persisted; they live only as long as the process.
package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/mermaidlive/pkg/cache"
	"github.com/matzehuels/mermaidlive/pkg/editor"
	"github.com/matzehuels/mermaidlive/pkg/errors"
	mlio "github.com/matzehuels/mermaidlive/pkg/io"
	"github.com/matzehuels/mermaidlive/pkg/render"
	"github.com/matzehuels/mermaidlive/pkg/render/raster"
)

// Config configures a new session.
type Config struct {
	Renderer    render.Renderer
	Markup      render.Markup
	Language    string
	Debounce    time.Duration
	Timeout     time.Duration
	Concurrency int
	Logger      *log.Logger

	// ExportScale is the PNG scale factor; zero uses raster.DefaultScale.
	ExportScale float64

	// Exports caches PNG and PDF exports by artifact hash. Nil disables it.
	Exports cache.Cache
	Keyer   cache.Keyer
}

// Session is one live editing session.
type Session struct {
	ID        string
	CreatedAt time.Time

	editor   *editor.Editor
	pipeline *render.Pipeline
	logger   *log.Logger
	scale    float64
	exports  cache.Cache
	keyer    cache.Keyer
	unsub    func()

	// lastInput is only touched by the editor subscriber, which the editor
	// serializes.
	lastInput render.Input

	mu       sync.Mutex
	lastUsed time.Time
}

// New creates a session preloaded with the example content and dispatches
// its first render.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	id := uuid.NewString()
	logger = logger.With("session", id[:8])

	now := time.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		lastUsed:  now,
		logger:    logger,
		scale:     cfg.ExportScale,
		exports:   cfg.Exports,
		keyer:     cfg.Keyer,
		editor: editor.New(
			editor.WithLanguage(cfg.Language),
			editor.WithLogger(logger),
		),
	}

	if s.keyer == nil {
		s.keyer = cache.NewDefaultKeyer()
	}

	opts := []render.Option{
		render.WithLogger(logger),
		render.WithLanguage(cfg.Language),
		render.WithConcurrency(cfg.Concurrency),
	}
	if cfg.Debounce > 0 {
		opts = append(opts, render.WithDebounce(cfg.Debounce))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, render.WithTimeout(cfg.Timeout))
	}
	s.pipeline = render.NewPipeline(cfg.Renderer, cfg.Markup, opts...)

	s.lastInput = render.InputFrom(s.editor.State())
	s.unsub = s.editor.Subscribe(s.onChange)
	s.pipeline.Dispatch(s.lastInput)
	return s
}

// Editor returns the session's editor.
func (s *Session) Editor() *editor.Editor { return s.editor }

// Pipeline returns the session's render pipeline.
func (s *Session) Pipeline() *render.Pipeline { return s.pipeline }

func (s *Session) onChange(snap editor.Snapshot) {
	in := render.InputFrom(snap.State)
	if in == s.lastInput {
		return
	}
	s.lastInput = in
	s.pipeline.Request(in)
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// LastUsed returns when the session was last touched.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Expired reports whether the session has been idle longer than ttl.
func (s *Session) Expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(s.LastUsed()) > ttl
}

// LoadNamed loads file content under a display name. Markdown names load
// as documents in Embedded mode, anything else as a standalone diagram.
func (s *Session) LoadNamed(name, text string) error {
	if name != "" {
		if err := errors.ValidateFileName(name); err != nil {
			return err
		}
	}
	s.editor.SetDisplayName(name)
	s.editor.LoadFile(text, mlio.IsDocumentFile(name))
	s.logger.Debug("file loaded", "name", name, "bytes", len(text))
	return nil
}

// Save returns the file name and content to save in the current mode.
func (s *Session) Save() (name, content string) {
	st := s.editor.State()
	return mlio.SaveName(st.DisplayName, st.Mode), mlio.SaveContent(st)
}

// Export renders the current standalone diagram in format f. It waits for
// any pending render so the export matches the buffer. Exports are only
// available in Standalone mode and need a successful render.
func (s *Session) Export(ctx context.Context, f raster.Format) (name string, data []byte, err error) {
	st := s.editor.State()
	if st.Mode != editor.Standalone {
		return "", nil, errors.New(errors.ErrCodeUnsupported, "export is not available in embedded mode")
	}

	tok := s.pipeline.Flush()
	if tok == 0 {
		return "", nil, errors.New(errors.ErrCodeNoDiagram, "no diagram to export")
	}
	res, err := s.pipeline.Wait(ctx, tok-1)
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeTimeout, err, "wait for render")
	}
	if !res.HasDiagram() {
		if !res.OK() {
			return "", nil, errors.New(errors.ErrCodeNoDiagram, "no diagram to export: %s", res.Message)
		}
		return "", nil, errors.New(errors.ErrCodeNoDiagram, "no diagram to export")
	}

	data, err = s.rasterize(ctx, []byte(res.Artifact), f)
	if err != nil {
		return "", nil, err
	}
	return mlio.ExportName(st.DisplayName, f), data, nil
}

// rasterize converts svg to f. Raster formats go through the export cache.
func (s *Session) rasterize(ctx context.Context, svg []byte, f raster.Format) ([]byte, error) {
	if s.exports == nil || f == raster.SVG {
		return raster.Export(ctx, svg, f, s.scale)
	}

	key := s.keyer.ExportKey(cache.Hash(svg), fmt.Sprintf("%s@%g", f, s.scale))
	if data, ok, err := s.exports.Get(ctx, key); err == nil && ok {
		return data, nil
	}
	data, err := raster.Export(ctx, svg, f, s.scale)
	if err != nil {
		return nil, err
	}
	if err := s.exports.Set(ctx, key, data, cache.RasterTTL); err != nil {
		s.logger.Debug("export cache write failed", "err", err)
	}
	return data, nil
}

// Close stops the session's pipeline.
func (s *Session) Close() error {
	s.unsub()
	return s.pipeline.Close()
}
