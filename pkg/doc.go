// Package pkg provides the core libraries of mermaidlive, a live editor for
// Mermaid diagrams.
//
// # Overview
//
// Mermaidlive keeps two text buffers: a standalone diagram and a Markdown
// document whose fenced mermaid blocks can each be edited on their own. Every
// edit is debounced and rendered in the background; only the newest render
// result is ever shown. The pkg directory is organized into these areas:
//
//  1. [editor] - Editor state (mode, buffers, selection, view transform)
//  2. [diagram] - Block extraction and diagram classification
//  3. [render] - Render pipeline, artifact cache wrapper and backends
//  4. [session] - Editing sessions and the session store used by the server
//  5. [io] - Loading, saving and export naming
//
// # Architecture
//
// The typical data flow through mermaidlive:
//
//	Keystroke / file load
//	         ↓
//	    [editor] package (update buffers, re-extract blocks)
//	         ↓
//	    [render] package (debounce, tokenize, render in background)
//	         ↓
//	    newest Result (SVG or HTML with inline SVGs)
//	         ↓
//	    [render/raster] package (optional PNG/PDF export)
//
// # Quick Start
//
// Render a diagram once, without debouncing:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/mermaidlive/pkg/editor"
//	    "github.com/matzehuels/mermaidlive/pkg/render"
//	    "github.com/matzehuels/mermaidlive/pkg/render/markdown"
//	    "github.com/matzehuels/mermaidlive/pkg/render/mermaid"
//	)
//
//	p := render.NewPipeline(mermaid.NewCLI(), markdown.New())
//	defer p.Close()
//
//	res := p.Render(context.Background(), render.Input{
//	    Mode:       editor.Standalone,
//	    Standalone: "graph TD\n  A-->B",
//	})
//	if res.OK() {
//	    fmt.Println(res.Artifact)
//	}
//
// # Main Packages
//
// [editor] - The editor state machine. Mode switches, buffer edits, diagram
// selection and zoom/pan all go through [editor.Editor]; observers are
// notified after every change.
//
// [diagram] - Line-based extraction of fenced blocks with their nearest
// heading as title, and keyword classification into diagram kinds.
//
// [view] - The zoom and pan transform of the preview.
//
// [render] - The render pipeline: latest-wins tokens, debounce, per-block
// rendering of documents, and a cache wrapper over any [render.Renderer].
//
//   - [render/mermaid]: mmdc executable and Kroki HTTP backends
//   - [render/graphviz]: in-process DOT rendering
//   - [render/markdown]: Markdown to HTML conversion
//   - [render/raster]: SVG to PNG/PDF conversion
//
// [cache] - Artifact caches: file, memory, Redis and MongoDB backends.
//
// [session] - One editor plus one pipeline per user, and an expiring store
// of sessions.
//
// [config] - TOML configuration with defaults and validation.
//
// [errors] - Error codes shared by the CLI and the HTTP API.
//
// [observability] - Hooks for render and extraction metrics.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/render/...   # Specific package
//	go test -run Example       # Examples only
//
// [editor]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/editor
// [diagram]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/diagram
// [view]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/view
// [render]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/render
// [render/mermaid]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/render/mermaid
// [render/graphviz]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/render/graphviz
// [render/markdown]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/render/markdown
// [render/raster]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/render/raster
// [cache]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/cache
// [session]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/session
// [io]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/io
// [config]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/mermaidlive/pkg/observability
package pkg
