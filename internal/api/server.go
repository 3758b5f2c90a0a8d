// Package api exposes the tuner panels, the pipeline catalog and the panel
// configurations over HTTP/JSON.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askiada/go-tuner/pkg/tuner"
	"github.com/askiada/go-tuner/pkg/tuner/drawer"
	"github.com/askiada/go-tuner/pkg/tuner/panelconfig"
	"github.com/askiada/go-tuner/pkg/vision"
)

// Server serves the tuner API.
type Server struct {
	router    chi.Router
	tuner     *tuner.Manager
	pipelines *vision.Manager
	panels    *panelconfig.Store
	processor *vision.Processor
	drawer    drawer.Drawer
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
}

// Option configures optional collaborators of a Server.
type Option func(s *Server)

// WithProcessor enables GET /frame.png.
func WithProcessor(p *vision.Processor) Option {
	return func(s *Server) {
		s.processor = p
	}
}

// WithDrawer enables GET /api/graph.
func WithDrawer(d drawer.Drawer) Option {
	return func(s *Server) {
		s.drawer = d
	}
}

// WithGatherer enables GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewServer(tm *tuner.Manager, pipelines *vision.Manager, panels *panelconfig.Store, opts ...Option) (*Server, error) {
	if tm == nil || pipelines == nil || panels == nil {
		return nil, errors.New("tuner manager, pipeline manager and panel store are required")
	}
	s := &Server{
		router:    chi.NewRouter(),
		tuner:     tm,
		pipelines: pipelines,
		panels:    panels,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "api")
	s.registerRoutes()

	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.Use(s.recoverMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.Get("/healthz", s.health)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.processor != nil {
		s.router.Get("/frame.png", s.frame)
	}

	apiRouter := chi.NewRouter()
	apiRouter.Use(jsonMiddleware)
	s.registerFieldRoutes(apiRouter)
	s.registerPipelineRoutes(apiRouter)
	s.registerPanelRoutes(apiRouter)
	apiRouter.Get("/diagnostics", s.diagnostics)
	if s.drawer != nil {
		apiRouter.Get("/graph", s.graph)
	}
	s.router.Mount("/api", apiRouter)
}

func (s *Server) registerFieldRoutes(r chi.Router) {
	r.Route("/fields", func(r chi.Router) {
		r.Get("/", s.listFields)
		r.Route("/{field}", func(r chi.Router) {
			r.Get("/", s.getField)
			r.Put("/slots", s.setSlots)
			r.Put("/slots/{slot}", s.setSlot)
			r.Put("/selections/{slot}", s.setSelection)
			r.Put("/config", s.setFieldConfig)
			r.Delete("/config", s.clearFieldConfig)
		})
	})
}

func (s *Server) registerPipelineRoutes(r chi.Router) {
	r.Get("/pipelines", s.listPipelines)
	r.Post("/pipelines/{name}", s.loadPipeline)
	r.Delete("/pipelines/active", s.unloadPipeline)
}

func (s *Server) registerPanelRoutes(r chi.Router) {
	r.Route("/panels", func(r chi.Router) {
		r.Get("/", s.getPanels)
		r.Put("/global", s.applyGlobal)
		r.Put("/kinds/{kind}", s.applyToKind)
		r.Delete("/kinds/{kind}", s.clearKind)
	})
}

// Serve runs an HTTP server on addr until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errC := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "http server shutdown")
		}

		return nil
	}
}
