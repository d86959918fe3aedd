// Package graphviz renders Graphviz DOT diagrams to SVG with go-graphviz.
//
// It lets the editor work on ```dot blocks with the same pipeline used for
// Mermaid, without any external tool: go-graphviz runs Graphviz compiled to
// WebAssembly in process.
package graphviz

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/goccy/go-graphviz"
)

// Language is the fence tag of DOT blocks.
const Language = "dot"

// Renderer renders DOT sources. The Graphviz runtime is created on first
// use and shared; renders are serialized because it is not safe for
// concurrent use.
type Renderer struct {
	mu sync.Mutex
	gv *graphviz.Graphviz
}

// New creates a renderer.
func New() *Renderer {
	return &Renderer{}
}

// RenderToVector parses source as DOT and renders it as SVG. The id is
// unused; Graphviz output carries no document-global ids.
func (r *Renderer) RenderToVector(ctx context.Context, _ string, source string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gv == nil {
		gv, err := graphviz.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("init graphviz: %w", err)
		}
		r.gv = gv
	}

	g, err := graphviz.ParseBytes([]byte(source))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := r.gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// Close releases the Graphviz runtime.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gv == nil {
		return nil
	}
	err := r.gv.Close()
	r.gv = nil
	return err
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element to a zero-origin viewBox with
// pixel width and height, which the view transform and the rasterizer
// both expect.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(root))
}
