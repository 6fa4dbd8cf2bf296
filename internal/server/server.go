// Package server exposes the analysis provider over HTTP: layer payloads,
// module file listings, file annotations, saved views, and a websocket
// that notifies clients when the watched project changes.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"onionscope/pkg/analysis"
	"onionscope/pkg/store"
)

// DefaultAddr is the default listen address.
const DefaultAddr = ":7317"

// Invalidater is implemented by providers whose held analysis can be
// dropped, forcing a re-scan on the next fetch.
type Invalidater interface {
	Invalidate()
}

// Config assembles a Server.
type Config struct {
	Addr     string
	Provider analysis.Provider
	Store    store.Store
	Project  string
	Logger   *log.Logger

	// Watch enables the filesystem watcher on this directory. Empty
	// disables watching.
	Watch string
}

// Server is the onionscope HTTP API.
type Server struct {
	addr     string
	provider analysis.Provider
	store    store.Store
	project  string
	logger   *log.Logger
	watch    string
	hub      *hub
	router   chi.Router
}

// New creates a Server. A nil store disables the views API with 404s; a
// nil logger uses the default.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	s := &Server{
		addr:     cfg.Addr,
		provider: cfg.Provider,
		store:    cfg.Store,
		project:  cfg.Project,
		logger:   cfg.Logger,
		watch:    cfg.Watch,
		hub:      newHub(cfg.Logger),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/project", s.handleProject)
		r.Get("/layers/{layer}", s.handleLayer)
		r.Get("/modules/files", s.handleModuleFiles)
		r.Get("/annotation", s.handleAnnotation)

		if s.store != nil {
			r.Route("/views", func(r chi.Router) {
				r.Get("/", s.handleListViews)
				r.Post("/", s.handleCreateView)
				r.Get("/{id}", s.handleGetView)
				r.Put("/{id}", s.handleUpdateView)
				r.Delete("/{id}", s.handleDeleteView)
			})
		}
	})
	r.Get("/ws", s.hub.handleSubscribe)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully. When a
// watch directory is configured, project changes invalidate the provider
// and notify websocket subscribers.
func (s *Server) Run(ctx context.Context) error {
	if s.watch != "" {
		w := newWatcher(s.watch, s.logger, func() {
			if inv, ok := s.provider.(Invalidater); ok {
				inv.Invalidate()
			}
			s.hub.broadcastInvalidated()
		})
		go func() {
			if err := w.watch(ctx); err != nil {
				s.logger.Error("watcher stopped", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.hub.closeAll()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
