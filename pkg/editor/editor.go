package editor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mermaidlive/pkg/diagram"
	"github.com/matzehuels/mermaidlive/pkg/observability"
	"github.com/matzehuels/mermaidlive/pkg/view"
)

// Editor owns a State and a view transform and applies transitions to them.
// It is safe for concurrent use.
type Editor struct {
	// notifyMu serializes transitions with their notifications so that
	// subscribers observe snapshots in transition order.
	notifyMu sync.Mutex

	mu     sync.Mutex
	state  State
	view   *view.Controller
	lang   string
	logger *log.Logger
	subs   map[int]func(Snapshot)
	nextID int
}

// Option configures an Editor.
type Option func(*Editor)

// WithLanguage sets the fence tag used to find diagram blocks.
func WithLanguage(lang string) Option {
	return func(e *Editor) {
		if lang != "" {
			e.lang = lang
		}
	}
}

// WithLogger sets the logger used for transition debug output.
func WithLogger(l *log.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithContent replaces the example buffers of a new editor.
func WithContent(standalone, document string) Option {
	return func(e *Editor) {
		e.state.StandaloneSource = standalone
		e.state.DocumentSource = document
	}
}

// New returns an editor in Standalone mode preloaded with the example
// diagram and document.
func New(opts ...Option) *Editor {
	e := &Editor{
		state: State{
			Mode:             Standalone,
			StandaloneSource: ExampleDiagram,
			DocumentSource:   ExampleDocument,
			SelectedIndex:    -1,
		},
		view:   view.NewController(),
		lang:   diagram.DefaultLanguage,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
		subs:   make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.setDocument(e.state.DocumentSource)
	return e
}

// Snapshot returns a copy of the current state and view.
func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// State returns a copy of the current state.
func (e *Editor) State() State {
	return e.Snapshot().State
}

// View returns the current view transform.
func (e *Editor) View() view.Transform {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.Transform()
}

// Subscribe registers fn to receive a snapshot after every change.
// fn runs synchronously on the goroutine that made the change and must not
// call mutating Editor methods. The returned function unsubscribes.
func (e *Editor) Subscribe(fn func(Snapshot)) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// EditStandalone replaces the standalone buffer. It is a no-op outside
// Standalone mode.
func (e *Editor) EditStandalone(text string) bool {
	return e.update(func() bool {
		if e.state.Mode != Standalone || e.state.StandaloneSource == text {
			return false
		}
		e.state.StandaloneSource = text
		return true
	})
}

// EditDocument replaces the document buffer and recomputes the diagram
// list. It is a no-op outside Embedded mode.
func (e *Editor) EditDocument(text string) bool {
	return e.update(func() bool {
		if e.state.Mode != Embedded || e.state.DocumentSource == text {
			return false
		}
		e.setDocument(text)
		return true
	})
}

// Select makes diagram i the selection and resets the view. In Standalone
// mode the standalone buffer is seeded from the block. Out-of-range indexes
// leave the state untouched.
func (e *Editor) Select(i int) bool {
	return e.update(func() bool {
		if i < 0 || i >= len(e.state.Diagrams) {
			return false
		}
		e.state.SelectedIndex = i
		if e.state.Mode == Standalone {
			e.state.StandaloneSource = e.state.Diagrams[i].Source
		}
		e.view.Reset()
		e.logger.Debug("selected diagram", "index", i, "title", e.state.Diagrams[i].Title)
		return true
	})
}

// LoadFile replaces the session content with a loaded file. Documents
// switch to Embedded mode and seed the standalone buffer from their first
// diagram; anything else switches to Standalone mode and clears the
// document.
func (e *Editor) LoadFile(text string, isDocument bool) {
	e.update(func() bool {
		if isDocument {
			e.state.Mode = Embedded
			e.setDocument(text)
			if len(e.state.Diagrams) > 0 {
				e.state.SelectedIndex = 0
				e.state.StandaloneSource = e.state.Diagrams[0].Source
			} else {
				e.state.StandaloneSource = NoDiagramsMessage
			}
		} else {
			e.state.Mode = Standalone
			e.state.StandaloneSource = text
			e.setDocument("")
		}
		e.view.Reset()
		e.logger.Debug("loaded file", "document", isDocument, "diagrams", len(e.state.Diagrams))
		return true
	})
}

// ToggleMode switches to Embedded (true) or Standalone (false). Leaving
// Embedded mode seeds the standalone buffer from the selected diagram.
// Switching to the current mode is a no-op.
func (e *Editor) ToggleMode(toEmbedded bool) bool {
	return e.update(func() bool {
		target := Standalone
		if toEmbedded {
			target = Embedded
		}
		if e.state.Mode == target {
			return false
		}
		e.state.Mode = target
		if target == Standalone && len(e.state.Diagrams) > 0 {
			blk, ok := e.state.Selected()
			if !ok {
				blk = e.state.Diagrams[0]
			}
			e.state.StandaloneSource = blk.Source
		}
		e.view.Reset()
		e.logger.Debug("switched mode", "mode", target)
		return true
	})
}

// SetDisplayName sets the file name shown for the session.
func (e *Editor) SetDisplayName(name string) {
	e.update(func() bool {
		if e.state.DisplayName == name {
			return false
		}
		e.state.DisplayName = name
		return true
	})
}

// ZoomIn zooms the view in by one step.
func (e *Editor) ZoomIn() { e.updateView(func(c *view.Controller) { c.ZoomIn() }) }

// ZoomOut zooms the view out by one step.
func (e *Editor) ZoomOut() { e.updateView(func(c *view.Controller) { c.ZoomOut() }) }

// ZoomBy multiplies the zoom by factor around an optional anchor.
func (e *Editor) ZoomBy(factor float64, anchor *view.Point) {
	e.updateView(func(c *view.Controller) { c.ZoomBy(factor, anchor) })
}

// Wheel applies a scroll-wheel zoom.
func (e *Editor) Wheel(deltaY float64, anchor *view.Point) {
	e.updateView(func(c *view.Controller) { c.Wheel(deltaY, anchor) })
}

// ResetView restores the default transform.
func (e *Editor) ResetView() { e.updateView(func(c *view.Controller) { c.Reset() }) }

// BeginDrag starts panning at p.
func (e *Editor) BeginDrag(p view.Point) {
	e.updateView(func(c *view.Controller) { c.BeginDrag(p) })
}

// DragTo pans to follow the pointer at p.
func (e *Editor) DragTo(p view.Point) {
	e.updateView(func(c *view.Controller) { c.DragTo(p) })
}

// EndDrag stops panning.
func (e *Editor) EndDrag() { e.updateView(func(c *view.Controller) { c.EndDrag() }) }

func (e *Editor) updateView(fn func(*view.Controller)) {
	e.update(func() bool {
		before := e.view.Transform()
		fn(e.view)
		return e.view.Transform() != before
	})
}

// update runs fn under the state lock and notifies subscribers if it
// reports a change.
func (e *Editor) update(fn func() bool) bool {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.mu.Lock()
	changed := fn()
	var (
		snap Snapshot
		subs []func(Snapshot)
	)
	if changed {
		snap = e.snapshotLocked()
		subs = make([]func(Snapshot), 0, len(e.subs))
		for _, s := range e.subs {
			subs = append(subs, s)
		}
	}
	e.mu.Unlock()

	for _, s := range subs {
		s(snap)
	}
	return changed
}

// setDocument replaces the document and keeps Diagrams and SelectedIndex
// consistent with it. A selection past the end of a shrunk list is clamped
// to the last block.
func (e *Editor) setDocument(text string) {
	start := time.Now()
	e.state.DocumentSource = text
	e.state.Diagrams = diagram.ExtractLanguage(text, e.lang)
	observability.Pipeline().OnExtract(context.Background(), len(e.state.Diagrams), time.Since(start))

	n := len(e.state.Diagrams)
	switch {
	case n == 0:
		e.state.SelectedIndex = -1
	case e.state.SelectedIndex < 0:
		e.state.SelectedIndex = 0
	case e.state.SelectedIndex >= n:
		e.state.SelectedIndex = n - 1
	}
}

func (e *Editor) snapshotLocked() Snapshot {
	return Snapshot{State: e.state.clone(), View: e.view.Transform()}
}
