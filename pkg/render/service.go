package render

import "context"

// Renderer converts one diagram source to SVG.
//
// id is unique per call. Implementations must tolerate many concurrent calls
// with distinct ids. Malformed source is reported as an error whose message
// is shown to the user.
type Renderer interface {
	RenderToVector(ctx context.Context, id, source string) ([]byte, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, id, source string) ([]byte, error)

// RenderToVector calls f.
func (f RendererFunc) RenderToVector(ctx context.Context, id, source string) ([]byte, error) {
	return f(ctx, id, source)
}

// Markup converts a document to presentation HTML. Fenced diagram blocks
// must survive as <code class="language-TAG"> elements.
type Markup interface {
	ToPresentationMarkup(doc string) (string, error)
}

// MarkupFunc adapts a function to the Markup interface.
type MarkupFunc func(doc string) (string, error)

// ToPresentationMarkup calls f.
func (f MarkupFunc) ToPresentationMarkup(doc string) (string, error) {
	return f(doc)
}
