package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/mermaidlive/pkg/diagram"
	"github.com/matzehuels/mermaidlive/pkg/editor"
	"github.com/matzehuels/mermaidlive/pkg/errors"
	mlio "github.com/matzehuels/mermaidlive/pkg/io"
	"github.com/matzehuels/mermaidlive/pkg/render"
	"github.com/matzehuels/mermaidlive/pkg/render/raster"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string  // output file, or output directory with --all
	format   string  // svg, png or pdf
	index    int     // diagram block to render from a document
	all      bool    // render every block of a document
	embedded bool    // render a document as HTML with inline diagrams
	scale    float64 // PNG scale factor
	noCache  bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a diagram or the diagrams of a Markdown document",
		Long: `Render a Mermaid diagram file to SVG, PNG or PDF.

Markdown files (.md, .markdown) are searched for mermaid blocks. By default
the first block is rendered; use --index to pick another, --all to render
every block, or --embedded to render the whole document as HTML with the
diagrams inlined.`,
		Example: `  mermaidlive render flow.mmd
  mermaidlive render flow.mmd -f png --scale 3
  mermaidlive render README.md --index 1 -o arch.svg
  mermaidlive render README.md --all -f pdf -o out/
  mermaidlive render README.md --embedded -o README.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.scale == 0 {
				opts.scale = c.config.Export.Scale
			}
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (directory with --all)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "svg", "output format: svg, png, pdf")
	cmd.Flags().IntVar(&opts.index, "index", 0, "index of the diagram block to render from a document")
	cmd.Flags().BoolVar(&opts.all, "all", false, "render every diagram block of a document")
	cmd.Flags().BoolVar(&opts.embedded, "embedded", false, "render a document as HTML with inline diagrams")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "PNG scale factor (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	cmd.MarkFlagsMutuallyExclusive("all", "embedded")

	return cmd
}

// renderJob is one diagram to render and where to write it.
type renderJob struct {
	label  string
	source string
	output string
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	format, err := raster.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if format != raster.SVG {
		if err := raster.Available(); err != nil {
			return err
		}
	}

	text, isDocument, err := mlio.LoadFile(input)
	if err != nil {
		return err
	}
	if opts.embedded && !isDocument {
		return errors.New(errors.ErrCodeInvalidMode, "--embedded needs a Markdown document, got %s", filepath.Base(input))
	}

	b, err := c.newBackend(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer b.Close()

	p := c.newPipeline(b, logger)
	defer p.Close()

	if opts.embedded {
		return c.renderDocument(ctx, p, input, text, opts)
	}

	jobs, err := c.renderJobs(input, text, isDocument, format, opts)
	if err != nil {
		return err
	}
	return c.renderDiagrams(ctx, p, jobs, format, opts.scale)
}

// renderJobs selects the diagrams to render and names their outputs.
func (c *CLI) renderJobs(input, text string, isDocument bool, f raster.Format, opts renderOpts) ([]renderJob, error) {
	defaultOut := filepath.Join(filepath.Dir(input), mlio.ExportName(filepath.Base(input), f))
	if !isDocument {
		return []renderJob{{label: filepath.Base(input), source: text, output: outputOr(opts.output, defaultOut)}}, nil
	}

	blocks := diagram.ExtractLanguage(text, c.config.Render.Language)
	if len(blocks) == 0 {
		return nil, errors.New(errors.ErrCodeNoDiagram, "no %s blocks found in %s", c.config.Render.Language, input)
	}

	if opts.all {
		dir := opts.output
		if dir == "" {
			dir = filepath.Dir(input)
		}
		stem := strings.TrimSuffix(mlio.ExportName(filepath.Base(input), f), f.Ext())
		jobs := make([]renderJob, len(blocks))
		for i, blk := range blocks {
			jobs[i] = renderJob{
				label:  blk.Label(),
				source: blk.Source,
				output: filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, blk.Ordinal+1, f.Ext())),
			}
		}
		return jobs, nil
	}

	if opts.index < 0 || opts.index >= len(blocks) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "diagram index %d out of range (found %d)", opts.index, len(blocks))
	}
	blk := blocks[opts.index]
	return []renderJob{{label: blk.Label(), source: blk.Source, output: outputOr(opts.output, defaultOut)}}, nil
}

// renderDiagrams renders and exports every job with bounded concurrency.
func (c *CLI) renderDiagrams(ctx context.Context, p *render.Pipeline, jobs []renderJob, f raster.Format, scale float64) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %d %s...", len(jobs), plural(len(jobs), "diagram", "diagrams")))
	spinner.Start()

	var finished atomic.Int32
	results := make([]render.Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Render.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			res := p.Render(gctx, render.Input{Mode: editor.Standalone, Standalone: job.source})
			results[i] = res
			if !res.OK() {
				return errors.New(errors.ErrCodeRenderFailed, "%s: %s", job.label, res.Message)
			}
			if !res.HasDiagram() {
				return errors.New(errors.ErrCodeNoDiagram, "%s is empty", job.label)
			}
			data, err := raster.Export(gctx, []byte(res.Artifact), f, scale)
			if err != nil {
				return err
			}
			if err := mlio.WriteFile(job.output, data); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", job.output)
			}
			n := finished.Add(1)
			spinner.Update(fmt.Sprintf("Rendering %d/%d diagrams...", n, len(jobs)))
			logger.Debug("diagram written", "diagram", job.label, "output", job.output, "elapsed", res.Elapsed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		spinner.StopWithError(errors.UserMessage(err))
		return err
	}

	spinner.StopWithSuccess(fmt.Sprintf("Rendered %d %s", len(jobs), plural(len(jobs), "diagram", "diagrams")))
	for _, job := range jobs {
		printFile(job.output)
	}
	prog.done("Render complete", "format", string(f))
	return nil
}

// renderDocument renders the whole document to HTML with inline diagrams.
func (c *CLI) renderDocument(ctx context.Context, p *render.Pipeline, input, text string, opts renderOpts) error {
	spinner := newSpinnerWithContext(ctx, "Rendering document...")
	spinner.Start()
	res := p.Render(ctx, render.Input{Mode: editor.Embedded, Document: text})
	if !res.OK() {
		spinner.StopWithError(res.Message)
		return errors.New(errors.ErrCodeRenderFailed, "%s", res.Message)
	}
	spinner.Stop()

	out := opts.output
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + ".html"
	}
	if err := mlio.WriteFile(out, []byte(res.Artifact)); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", out)
	}

	if res.FailedBlocks > 0 {
		printWarning("%d of %d diagrams failed to render", res.FailedBlocks, res.Blocks)
	} else {
		printSuccess("Rendered %s", filepath.Base(input))
	}
	printFile(out)
	printRenderStats(res)
	printNextStep("Edit live", fmt.Sprintf("%s edit %s", appName, input))
	return nil
}

func outputOr(output, fallback string) string {
	if output != "" {
		return output
	}
	return fallback
}
