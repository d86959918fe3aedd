// Package render drives asynchronous diagram rendering for a live editor.
//
// # Overview
//
// A [Pipeline] turns editor input into a [Result]. It knows two protocols:
//
//   - Standalone: the whole input is one diagram source handed to a
//     [Renderer]. Empty input yields a placeholder, not a failure.
//   - Embedded: the input is a Markdown document. A [Markup] service converts
//     it to HTML, every diagram code block in that HTML is rendered
//     independently, and each block is replaced by its SVG or by an inline
//     error marker.
//
// # Tokens
//
// Every dispatched render carries a strictly increasing token. A result is
// applied only if its token is still the latest one dispatched; older results
// are discarded when they arrive. In-flight renders are never cancelled
// because of newer input, only ignored.
//
//	p := render.NewPipeline(renderer, markup, render.WithDebounce(200*time.Millisecond))
//	defer p.Close()
//	p.Subscribe(func(r render.Result) { show(r) })
//	p.Request(render.Input{Mode: editor.Standalone, Standalone: src})
//
// [Request] coalesces bursts of input with a quiescence delay. [Dispatch]
// skips the delay. [Pipeline.Render] runs one render synchronously without
// any token bookkeeping, for batch use from the CLI.
//
// # Backends
//
// Concrete renderers live in subpackages: [mermaid] (mmdc CLI and Kroki
// HTTP), [graphviz] (DOT via go-graphviz) and [markdown] (goldmark). The
// [raster] subpackage converts SVG to PNG or PDF for export. [Cached] adds a
// content-addressed artifact cache in front of any renderer.
package render
