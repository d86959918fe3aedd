// Package raster exports rendered SVG diagrams as SVG, PNG or PDF.
//
// PNG and PDF conversion shells out to rsvg-convert from librsvg:
// brew install librsvg (macOS), apt install librsvg2-bin (Linux).
package raster

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/mermaidlive/pkg/errors"
)

// Format is an export format.
type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
	PDF Format = "pdf"
)

// Formats lists the supported export formats.
var Formats = []Format{SVG, PNG, PDF}

// ParseFormat validates an export format name (case-insensitive).
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case SVG, PNG, PDF:
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported export format %q (want svg, png or pdf)", s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case PNG:
		return "image/png"
	case PDF:
		return "application/pdf"
	default:
		return "image/svg+xml"
	}
}

// DefaultScale is the PNG scale factor used when none is given.
const DefaultScale = 2.0

// Export converts svg to f. SVG output only gets explicit dimensions; PNG
// output also gets an opaque white background.
func Export(ctx context.Context, svg []byte, f Format, scale float64) ([]byte, error) {
	svg = PrepareSVG(svg)
	switch f {
	case SVG:
		return svg, nil
	case PNG:
		if scale <= 0 {
			scale = DefaultScale
		}
		return ToPNG(ctx, WithBackground(svg, "white"), scale)
	case PDF:
		return ToPDF(ctx, svg)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported export format %q", f)
}

// ToPDF converts SVG bytes to PDF using rsvg-convert.
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	return rsvgConvert(ctx, svg, "pdf")
}

// ToPNG converts SVG bytes to PNG using rsvg-convert with the given scale factor.
// Scale of 2.0 produces a 2x resolution image.
func ToPNG(ctx context.Context, svg []byte, scale float64) ([]byte, error) {
	return rsvgConvert(ctx, svg, "png", "-z", fmt.Sprintf("%.2f", scale))
}

// Available reports an install hint if rsvg-convert is missing.
func Available() error {
	if _, err := exec.LookPath("rsvg-convert"); err != nil {
		return errors.New(errors.ErrCodeUnsupported, "PNG and PDF export require librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin")
	}
	return nil
}

// rsvgConvert shells out to rsvg-convert for format conversion.
func rsvgConvert(ctx context.Context, svg []byte, format string, extraArgs ...string) ([]byte, error) {
	if err := Available(); err != nil {
		return nil, err
	}

	args := append([]string{"-f", format}, extraArgs...)
	cmd := exec.CommandContext(ctx, "rsvg-convert", args...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "rsvg-convert: %s", strings.TrimSpace(errBuf.String()))
	}
	return out.Bytes(), nil
}

var (
	rootRe    = regexp.MustCompile(`<svg\b[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="\s*[-0-9.]+[\s,]+[-0-9.]+[\s,]+([0-9.]+)[\s,]+([0-9.]+)\s*"`)
	widthRe   = regexp.MustCompile(`\swidth="([^"]*)"`)
	heightRe  = regexp.MustCompile(`\sheight="([^"]*)"`)
)

// PrepareSVG gives the root element absolute width and height taken from
// its viewBox when they are missing or relative, as in Mermaid's
// width="100%" output. Rasterizers need a concrete size.
func PrepareSVG(svg []byte) []byte {
	loc := rootRe.FindIndex(svg)
	if loc == nil {
		return svg
	}
	root := string(svg[loc[0]:loc[1]])

	vb := viewBoxRe.FindStringSubmatch(root)
	if vb == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(vb[1], 64)
	h, _ := strconv.ParseFloat(vb[2], 64)
	if w <= 0 || h <= 0 {
		return svg
	}

	fixed := setDimension(root, widthRe, "width", w)
	fixed = setDimension(fixed, heightRe, "height", h)
	if fixed == root {
		return svg
	}

	out := make([]byte, 0, len(svg)+32)
	out = append(out, svg[:loc[0]]...)
	out = append(out, fixed...)
	return append(out, svg[loc[1]:]...)
}

func setDimension(root string, re *regexp.Regexp, name string, v float64) string {
	attr := fmt.Sprintf(` %s="%.0f"`, name, v)
	m := re.FindStringSubmatch(root)
	if m == nil {
		return strings.Replace(root, "<svg", "<svg"+attr, 1)
	}
	if isAbsolute(m[1]) {
		return root
	}
	return strings.Replace(root, m[0], attr, 1)
}

func isAbsolute(v string) bool {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

// WithBackground inserts a full-size rect of the given color as the first
// child of the root element.
func WithBackground(svg []byte, color string) []byte {
	loc := rootRe.FindIndex(svg)
	if loc == nil || bytes.HasSuffix(svg[loc[0]:loc[1]], []byte("/>")) {
		return svg
	}
	rect := fmt.Sprintf(`<rect width="100%%" height="100%%" fill="%s"/>`, color)

	out := make([]byte, 0, len(svg)+len(rect))
	out = append(out, svg[:loc[1]]...)
	out = append(out, rect...)
	return append(out, svg[loc[1]:]...)
}
