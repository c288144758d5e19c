// Package web serves the extractor over HTTP: a JSON/xlsx API, a small
// HTML upload UI, health and Prometheus metrics.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/config"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/pipeline"
	appmw "github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const cspPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'"

// Server is the HTTP front end of the extraction pipeline.
type Server struct {
	cfg     *config.Config
	service *pipeline.Service
	router  *chi.Mux
	server  *http.Server

	// stopped is closed once Shutdown has drained running extractions.
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewServer wires middleware and routes.
func NewServer(cfg *config.Config, service *pipeline.Service) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		router:  chi.NewRouter(),
		stopped: make(chan struct{}),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(appmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(appmw.Logger)
	s.router.Use(appmw.Metrics)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(appmw.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).Handler)
	}
}

func (s *Server) setupRoutes() {
	uploads := s.uploadLimit()

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// HTML UI. Browsers cannot send X-API-Key, so the UI is either public
	// or switched off.
	if !s.cfg.Security.DisableUI {
		s.router.Get("/", s.handleIndex)
		s.router.With(uploads).Post("/ui/process", s.handleUIProcess)
	}

	// Legacy path kept for existing scripts.
	s.router.With(uploads, appmw.APIKeyAuth(s.cfg.Security)).Post("/process-xlsx", s.handleProcessXLSX)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(appmw.APIKeyAuth(s.cfg.Security))

		r.Get("/runs", s.handleRuns)
		r.Get("/status", s.handleStatus)

		r.Group(func(r chi.Router) {
			r.Use(uploads)
			r.Post("/process-xlsx", s.handleProcessXLSX)
			r.Post("/process-summary", s.handleProcessSummary)
		})
	})
}

// uploadLimit applies the stricter per-IP limit for processing endpoints.
func (s *Server) uploadLimit() func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return appmw.NewRateLimiter(s.cfg.Rate.UploadLimit, time.Minute).Handler
}

// Start listens on the configured address. After Shutdown is called it
// returns only once Shutdown has finished, so callers may release shared
// resources such as the history pool as soon as Start returns.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-s.stopped
	return nil
}

// Shutdown stops accepting requests, then waits for running extractions.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.stopOnce.Do(func() { close(s.stopped) })

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.service.Limiter().WaitForDrain(ctx)
}

// Router returns the chi router, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", cspPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}
