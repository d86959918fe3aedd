package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/mermaidlive/pkg/editor"
)

// Render runs one render of in synchronously. It never returns an error:
// every failure, including a panic in a backend, becomes a Failure result.
// The returned result has no token.
func (p *Pipeline) Render(ctx context.Context, in Input) Result {
	start := time.Now()
	var res Result
	if in.Mode == editor.Embedded {
		res = p.renderEmbedded(ctx, in.Document)
	} else {
		res = p.renderStandalone(ctx, in.Standalone)
	}
	res.Mode = in.Mode
	res.Elapsed = time.Since(start)
	return res
}

func (p *Pipeline) renderStandalone(ctx context.Context, source string) Result {
	if strings.TrimSpace(source) == "" {
		return Result{Status: Success, Artifact: PlaceholderSVG, Placeholder: true}
	}
	svg, err := p.renderOne(ctx, source)
	if err != nil {
		return failure(editor.Standalone, err.Error())
	}
	return Result{Status: Success, Artifact: string(svg), Blocks: 1}
}

// renderEmbedded converts the document and renders each diagram block on
// its own. A failed block only replaces its own region.
func (p *Pipeline) renderEmbedded(ctx context.Context, doc string) Result {
	out, err := p.safeMarkup(doc)
	if err != nil {
		return failure(editor.Embedded, "render document: "+err.Error())
	}

	regions := findRegions(out, p.lang)
	parts := make([]string, len(regions))
	failed := make([]bool, len(regions))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, r := range regions {
		g.Go(func() error {
			svg, err := p.renderOne(ctx, r.source)
			if err != nil {
				p.logger.Debug("diagram block failed", "block", i, "err", err)
				parts[i] = errorMarker(err.Error())
				failed[i] = true
				return nil
			}
			parts[i] = diagramContainer(svg)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Status:   Success,
		Artifact: replaceRegions(out, regions, parts),
		Blocks:   len(regions),
	}
	for _, f := range failed {
		if f {
			res.FailedBlocks++
		}
	}
	return res
}

// renderOne calls the renderer with a fresh id and turns panics into errors.
func (p *Pipeline) renderOne(ctx context.Context, source string) (svg []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panic: %v", r)
		}
	}()
	id := "mermaid-" + uuid.NewString()
	svg, err = p.renderer.RenderToVector(ctx, id, source)
	if err == nil && len(svg) == 0 {
		err = fmt.Errorf("renderer returned no output")
	}
	return svg, err
}

func (p *Pipeline) safeMarkup(doc string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("markup panic: %v", r)
		}
	}()
	return p.markup.ToPresentationMarkup(doc)
}
