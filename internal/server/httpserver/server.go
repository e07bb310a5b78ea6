// Package httpserver runs a chi-routed HTTP server with graceful shutdown
// and per-request timeouts at the transport boundary.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/api/middleware"
)

const shutdownGracePeriod = 10 * time.Second

// Server wraps an http.Server bound to one address.
type Server struct {
	address        string
	requestTimeout time.Duration
	logger         logging.Logger
	router         *chi.Mux
}

// New builds a server with the shared middleware stack. requestTimeout
// bounds every request end to end; mount adds the route tree.
func New(address string, requestTimeout time.Duration, logger logging.Logger, mount func(chi.Router)) *Server {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Timeout(requestTimeout))
	mount(r)

	return &Server{
		address:        address,
		requestTimeout: requestTimeout,
		logger:         logger.With("module", "http_server"),
		router:         r,
	}
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.requestTimeout,
		WriteTimeout:      s.requestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
