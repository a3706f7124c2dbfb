package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyflow/internal/server"
)

// serveOpts holds flags for the serve command. Empty values fall back to
// the [server] and [cache] sections of the config file.
type serveOpts struct {
	addr        string
	watch       string
	storiesDir  string
	redisURL    string
	corsOrigins []string
	noCache     bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve exposes validation, analysis, simulation and rendering over HTTP.

POST a story document to /api/validate, /api/analyze, /api/reachability,
/api/cycles, /api/paths, /api/simulate or /api/render. With --watch, the
file is re-validated on every save and the result is pushed to websocket
clients on /ws. Prometheus metrics are served on /metrics.`,
		Example: `  storyflow serve --addr :9000 --watch story.json --cors-origin http://localhost:5173`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, else :8080)")
	cmd.Flags().StringVar(&opts.watch, "watch", "", "story file to re-validate and broadcast on /ws")
	cmd.Flags().StringVar(&opts.storiesDir, "stories-dir", "", "directory served under /api/stories/")
	cmd.Flags().StringVar(&opts.redisURL, "redis-url", "", "share the report cache through Redis")
	cmd.Flags().StringSliceVar(&opts.corsOrigins, "cors-origin", nil, "allowed CORS origin (repeatable)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the report cache")
	return cmd
}

func (c *CLI) serverConfig(opts serveOpts) server.Config {
	cfg := server.Config{
		Addr:        c.Config.Server.Addr,
		CORSOrigins: c.Config.Server.CORSOrigins,
		StoriesDir:  c.Config.Server.StoriesDir,
		WatchPath:   opts.watch,
		Preview:     c.Config.PreviewState(),
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if opts.storiesDir != "" {
		cfg.StoriesDir = opts.storiesDir
	}
	if len(opts.corsOrigins) > 0 {
		cfg.CORSOrigins = opts.corsOrigins
	}
	return cfg
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	if opts.redisURL != "" {
		c.Config.Cache.RedisURL = opts.redisURL
	}
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	cfg := c.serverConfig(opts)
	srv := server.New(runner, cfg, c.Logger)

	printSuccess("Serving storyflow API on %s", cfg.Addr)
	if cfg.WatchPath != "" {
		printDetail("Watching %s (live results on /ws)", cfg.WatchPath)
	}
	if cfg.StoriesDir != "" {
		printDetail("Stories from %s", cfg.StoriesDir)
	}

	err = srv.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
