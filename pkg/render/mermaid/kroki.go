package mermaid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/mermaidlive/pkg/buildinfo"
	mlerrors "github.com/matzehuels/mermaidlive/pkg/errors"
	"github.com/matzehuels/mermaidlive/pkg/httputil"
	"github.com/matzehuels/mermaidlive/pkg/observability"
)

// DefaultKrokiURL is the public Kroki instance.
const DefaultKrokiURL = "https://kroki.io"

const (
	httpTimeout   = 20 * time.Second
	retryAttempts = 3
	maxErrorBody  = 4 << 10
)

// Kroki renders diagrams through a Kroki server.
type Kroki struct {
	base        *url.URL
	diagramType string
	theme       string
	http        *http.Client
	retryDelay  time.Duration
}

// KrokiOption configures a Kroki renderer.
type KrokiOption func(*Kroki)

// WithDiagramType sets the Kroki diagram type, "mermaid" by default.
// "graphviz" renders DOT sources.
func WithDiagramType(t string) KrokiOption {
	return func(k *Kroki) {
		if t != "" {
			k.diagramType = t
		}
	}
}

// WithKrokiTheme sets the Mermaid theme diagram option.
func WithKrokiTheme(theme string) KrokiOption {
	return func(k *Kroki) { k.theme = theme }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) KrokiOption {
	return func(k *Kroki) {
		if c != nil {
			k.http = c
		}
	}
}

// NewKroki creates a renderer for the Kroki server at baseURL.
func NewKroki(baseURL string, opts ...KrokiOption) (*Kroki, error) {
	if err := mlerrors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, mlerrors.Wrap(mlerrors.ErrCodeInvalidInput, err, "parse kroki url")
	}
	k := &Kroki{
		base:        u,
		diagramType: "mermaid",
		http:        &http.Client{Timeout: httpTimeout},
		retryDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// RenderToVector posts source to {base}/{type}/svg. Kroki answers 400 with
// the parser's message for malformed source; that message becomes the error.
func (k *Kroki) RenderToVector(ctx context.Context, _ string, source string) ([]byte, error) {
	endpoint := k.base.JoinPath(k.diagramType, "svg")
	var svg []byte
	err := httputil.Retry(ctx, retryAttempts, k.retryDelay, func() error {
		var err error
		svg, err = k.post(ctx, endpoint, source)
		return err
	})
	if err != nil {
		return nil, err
	}
	return svg, nil
}

func (k *Kroki) post(ctx context.Context, endpoint *url.URL, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(source))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "image/svg+xml")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	if k.theme != "" {
		req.Header.Set("Kroki-Diagram-Options-Theme", k.theme)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, endpoint.Host, endpoint.Path)
	start := time.Now()

	resp, err := k.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, endpoint.Host, endpoint.Path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &httputil.RetryableError{Err: mlerrors.Wrap(mlerrors.ErrCodeNetwork, err, "kroki request")}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, endpoint.Host, endpoint.Path, resp.StatusCode, time.Since(start))

	if err := httputil.CheckStatus(resp.StatusCode); err != nil {
		var re *httputil.RetryableError
		if errors.As(err, &re) {
			re.After = httputil.RetryAfter(resp.Header)
		}
		if errors.Is(err, httputil.ErrBadRequest) {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			if msg := strings.TrimSpace(string(body)); msg != "" {
				return nil, errors.New(msg)
			}
		}
		return nil, fmt.Errorf("kroki: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, &httputil.RetryableError{Err: mlerrors.Wrap(mlerrors.ErrCodeNetwork, err, "read kroki response")}
	}
	return buf.Bytes(), nil
}
