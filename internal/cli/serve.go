package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mermaidlive/internal/server"
	"github.com/matzehuels/mermaidlive/pkg/observability"
	"github.com/matzehuels/mermaidlive/pkg/session"
)

type serveOpts struct {
	addr       string
	sessionTTL time.Duration
	noCache    bool
	open       bool
}

// serveCommand creates the serve command for the browser editor.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live editor over HTTP",
		Long: `Serve the live editor over HTTP.

Open the printed address in a browser to edit a diagram or a Markdown
document with a live preview. Each browser tab gets its own session;
idle sessions expire after --session-ttl.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				opts.addr = c.config.Server.Addr
			}
			if !cmd.Flags().Changed("session-ttl") {
				opts.sessionTTL = c.config.Server.SessionTTL
			}
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().DurationVar(&opts.sessionTTL, "session-ttl", session.DefaultTTL, "idle session lifetime")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().BoolVar(&opts.open, "open", false, "open the editor in the default browser")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	logger := loggerFromContext(ctx)

	b, err := c.newBackend(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer b.Close()

	stats := observability.NewStats()
	observability.SetPipelineHooks(stats)
	observability.SetCacheHooks(stats)

	store := session.NewStore(opts.sessionTTL)
	srv := server.New(server.Config{
		Store:   store,
		Session: c.sessionConfig(b, logger),
		Stats:   stats,
		Logger:  logger,
	})

	printKeyValue("Backend", c.config.Render.Backend)
	cacheBackend := c.config.Cache.Backend
	if opts.noCache {
		cacheBackend = "none"
	}
	printKeyValue("Cache", cacheBackend)
	editorURL := "http://" + opts.addr
	printKeyValue("Editor", StyleLink.Render(editorURL))

	if opts.open {
		// Give the listener a moment to come up before the browser connects.
		t := time.AfterFunc(300*time.Millisecond, func() {
			if err := openBrowser(editorURL); err != nil {
				logger.Warn("could not open browser", "err", err)
			}
		})
		defer t.Stop()
	}

	return srv.ListenAndServe(ctx, opts.addr)
}
