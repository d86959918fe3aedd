package render

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mermaidlive/pkg/cache"
)

// idMarker stands in for the per-call render id inside cached SVG, since
// renderers embed the id in element ids and scoped CSS.
const idMarker = "__mermaidlive_render_id__"

// CachedRenderer memoizes a Renderer's output by source content.
// Failures are never cached.
type CachedRenderer struct {
	inner   Renderer
	cache   cache.Cache
	keyer   cache.Keyer
	backend string
	ttl     time.Duration
	logger  *log.Logger
}

// CacheOption configures a CachedRenderer.
type CacheOption func(*CachedRenderer)

// WithKeyer overrides the default cache keyer.
func WithKeyer(k cache.Keyer) CacheOption {
	return func(c *CachedRenderer) {
		if k != nil {
			c.keyer = k
		}
	}
}

// WithTTL sets how long entries live. Zero keeps them forever.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachedRenderer) { c.ttl = ttl }
}

// WithCacheLogger sets the logger for cache debug output.
func WithCacheLogger(l *log.Logger) CacheOption {
	return func(c *CachedRenderer) {
		if l != nil {
			c.logger = l
		}
	}
}

// Cached wraps r with an artifact cache. backend names the renderer so that
// different backends never share entries. A nil cache disables caching.
func Cached(r Renderer, c cache.Cache, backend string, opts ...CacheOption) *CachedRenderer {
	if c == nil {
		c = cache.NewNullCache()
	}
	cr := &CachedRenderer{
		inner:   r,
		cache:   c,
		keyer:   cache.NewDefaultKeyer(),
		backend: backend,
		ttl:     cache.ArtifactTTL,
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(cr)
	}
	return cr
}

// RenderToVector returns the cached SVG for source or renders and stores it.
// Cache errors are logged and treated as misses.
func (c *CachedRenderer) RenderToVector(ctx context.Context, id, source string) ([]byte, error) {
	key := c.keyer.ArtifactKey(c.backend, source)

	data, hit, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("artifact cache read failed", "err", err)
	}
	if hit {
		c.logger.Debug("artifact cache hit", "backend", c.backend)
		return bytes.ReplaceAll(data, []byte(idMarker), []byte(id)), nil
	}

	svg, err := c.inner.RenderToVector(ctx, id, source)
	if err != nil {
		return nil, err
	}

	stored := svg
	if id != "" {
		stored = bytes.ReplaceAll(svg, []byte(id), []byte(idMarker))
	}
	if err := c.cache.Set(ctx, key, stored, c.ttl); err != nil {
		c.logger.Warn("artifact cache write failed", "err", err)
	}
	return svg, nil
}

var _ Renderer = (*CachedRenderer)(nil)
