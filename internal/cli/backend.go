package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mermaidlive/pkg/cache"
	"github.com/matzehuels/mermaidlive/pkg/config"
	"github.com/matzehuels/mermaidlive/pkg/diagram"
	"github.com/matzehuels/mermaidlive/pkg/render"
	"github.com/matzehuels/mermaidlive/pkg/render/graphviz"
	"github.com/matzehuels/mermaidlive/pkg/render/markdown"
	"github.com/matzehuels/mermaidlive/pkg/render/mermaid"
	"github.com/matzehuels/mermaidlive/pkg/session"
)

// =============================================================================
// Backend Factory
// =============================================================================

// backend bundles the rendering services built from the config.
type backend struct {
	Renderer render.Renderer
	Markup   render.Markup
	Cache    cache.Cache
	Keyer    cache.Keyer
	closers  []func() error
}

// Close releases the cache connection and renderer resources.
func (b *backend) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// newBackend builds the configured renderer wrapped in the artifact cache.
// An unavailable mmdc executable is logged, not returned: every render
// then fails with the install hint.
func (c *CLI) newBackend(ctx context.Context, noCache bool) (*backend, error) {
	cfg := c.config
	logger := loggerFromContext(ctx)

	b := &backend{Markup: markdown.New()}

	r, err := newRenderer(cfg.Render, logger)
	if err != nil {
		return nil, err
	}
	if closer, ok := r.(interface{ Close() error }); ok {
		b.closers = append(b.closers, closer.Close)
	}

	store, err := c.newCache(ctx, noCache)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.closers = append(b.closers, store.Close)

	b.Cache = store
	b.Keyer = cache.NewScopedKeyer(nil, renderScope(cfg.Render))
	b.Renderer = render.Cached(r, store, cfg.Render.Backend,
		render.WithKeyer(b.Keyer),
		render.WithTTL(cfg.Cache.TTL),
		render.WithCacheLogger(logger),
	)
	return b, nil
}

func newRenderer(cfg config.RenderConfig, logger *log.Logger) (render.Renderer, error) {
	switch cfg.Backend {
	case config.BackendMMDC:
		r := mermaid.NewCLI(
			mermaid.WithPath(cfg.MMDC.Path),
			mermaid.WithTheme(cfg.Theme),
			mermaid.WithBackground(cfg.MMDC.Background),
			mermaid.WithPuppeteerConfig(cfg.MMDC.PuppeteerConfig),
		)
		if err := r.Available(); err != nil {
			logger.Warn("mmdc not found", "path", cfg.MMDC.Path)
		}
		return r, nil
	case config.BackendKroki:
		opts := []mermaid.KrokiOption{mermaid.WithKrokiTheme(cfg.Theme)}
		if cfg.Language != "" && cfg.Language != diagram.DefaultLanguage {
			opts = append(opts, mermaid.WithDiagramType(krokiType(cfg.Language)))
		}
		return mermaid.NewKroki(cfg.Kroki.URL, opts...)
	case config.BackendGraphviz:
		return graphviz.New(), nil
	default:
		return nil, fmt.Errorf("unknown render backend %q", cfg.Backend)
	}
}

// renderScope is the key prefix for the options that change a backend's
// output, e.g. "default/white:".
func renderScope(cfg config.RenderConfig) string {
	return cfg.Theme + "/" + cfg.MMDC.Background + ":"
}

// krokiType maps a fence language to its Kroki diagram type.
func krokiType(lang string) string {
	if lang == graphviz.Language {
		return "graphviz"
	}
	return lang
}

// newCache opens the configured artifact cache.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.config.Cache
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheMemory:
		return cache.NewMemoryCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cfg.RedisURL(), appName+":")
	case config.CacheMongo:
		return cache.NewMongoCache(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	default:
		dir, err := c.artifactDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// sessionConfig returns the template for new editing sessions.
func (c *CLI) sessionConfig(b *backend, logger *log.Logger) session.Config {
	cfg := c.config
	return session.Config{
		Renderer:    b.Renderer,
		Markup:      b.Markup,
		Language:    cfg.Render.Language,
		Debounce:    cfg.Render.Debounce,
		Timeout:     cfg.Render.Timeout,
		Concurrency: cfg.Render.Concurrency,
		Logger:      logger,
		ExportScale: cfg.Export.Scale,
		Exports:     b.Cache,
		Keyer:       b.Keyer,
	}
}

// newPipeline returns a pipeline for one-shot renders.
func (c *CLI) newPipeline(b *backend, logger *log.Logger) *render.Pipeline {
	cfg := c.config.Render
	return render.NewPipeline(b.Renderer, b.Markup,
		render.WithLogger(logger),
		render.WithLanguage(cfg.Language),
		render.WithConcurrency(cfg.Concurrency),
		render.WithTimeout(cfg.Timeout),
	)
}
