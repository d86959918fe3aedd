// Package markdown converts Markdown documents to HTML with goldmark.
//
// Fenced code blocks keep goldmark's default output,
// <pre><code class="language-TAG">, which is what the render pipeline
// looks for when it replaces diagram blocks with SVG.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Converter renders GitHub flavored Markdown. Raw HTML in the document is
// passed through, as a README preview would show it.
type Converter struct {
	md goldmark.Markdown
}

// New creates a converter with the GFM extensions enabled.
func New() *Converter {
	return &Converter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// ToPresentationMarkup converts doc to an HTML fragment.
func (c *Converter) ToPresentationMarkup(doc string) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(doc), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
