// Package server exposes the story pipeline over HTTP.
//
// Request bodies are story documents (JSON by default; TOML or YAML via
// ?format= or the Content-Type header). Analysis options travel as query
// parameters. Errors are JSON objects of the form
//
//	{"error": {"code": "INVALID_STORY", "message": "..."}}
//
// using the codes of pkg/errors. When a watch path is configured, every save
// of that file is validated and pushed to /ws clients.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/storyflow/pkg/flow"
	"github.com/matzehuels/storyflow/pkg/pipeline"
	"github.com/matzehuels/storyflow/pkg/simulate"
	"github.com/matzehuels/storyflow/pkg/watch"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 10 << 20

const shutdownTimeout = 5 * time.Second

// Config configures a [Server].
type Config struct {
	Addr        string
	CORSOrigins []string
	// StoriesDir enables GET /api/stories/{path}. Paths are resolved
	// relative to it and may not escape it.
	StoriesDir string
	// WatchPath is validated on every change and broadcast on /ws.
	WatchPath    string
	MaxBodyBytes int64
	// Preview is the reader state /api/simulate starts from unless the
	// request overrides it.
	Preview simulate.State
}

// Server is the storyflow HTTP API.
type Server struct {
	runner  *pipeline.Runner
	cfg     Config
	logger  *log.Logger
	metrics *Metrics
	hub     *hub
	router  chi.Router
}

// New creates a server. A nil logger discards output. The server's metrics
// are installed as the process-wide observability hooks.
func New(runner *pipeline.Runner, cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Preview == (simulate.State{}) {
		cfg.Preview = simulate.DefaultState()
	}

	s := &Server{
		runner:  runner,
		cfg:     cfg,
		logger:  logger,
		metrics: NewMetrics(),
	}
	s.metrics.Install()
	s.hub = newHub(logger, s.checkOrigin, func(n int) { s.metrics.wsClients.Set(float64(n)) })
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 2)
	if s.cfg.WatchPath != "" {
		w, err := watch.New(s.cfg.WatchPath, s.Notify, watch.WithLogger(s.logger))
		if err != nil {
			return fmt.Errorf("watch %s: %w", s.cfg.WatchPath, err)
		}
		defer w.Close()
		s.Notify(ctx, s.cfg.WatchPath)
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errc <- err
			}
		}()
		s.logger.Info("watching story", "path", s.cfg.WatchPath)
	}

	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		s.hub.Close()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Notify validates the story at path and broadcasts the result to
// websocket clients. It is the watch handler.
func (s *Server) Notify(ctx context.Context, path string) {
	ev := Event{Type: "validation", Path: path, Time: time.Now().UTC()}
	st, err := s.runner.Load(ctx, path)
	if err == nil {
		var res flow.ValidationResult
		res, _, err = s.runner.Validate(ctx, st, pipeline.Options{})
		ev.Result = &res
	}
	if err != nil {
		body := toBody(err)
		ev.Type, ev.Result, ev.Error = "error", nil, &body
	}
	s.hub.Broadcast(ev)
}
