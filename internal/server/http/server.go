// Package http exposes the REST API over chi.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/dmitrijs2005/liberandum/internal/server/metrics"
	"github.com/dmitrijs2005/liberandum/internal/server/oauth"
	"github.com/dmitrijs2005/liberandum/internal/server/ratelimit"
	"github.com/dmitrijs2005/liberandum/internal/server/services"
)

// Pinger reports whether storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the API. Limiter and Metrics are optional.
type Deps struct {
	Auth    *services.AuthService
	Guard   *services.Guard
	Profile *services.ProfileService
	Market  *services.MarketService
	Data    *services.DataService
	Admin   *services.AdminService
	Google  *oauth.Google
	Storage Pinger

	Limiter ratelimit.Limiter
	Metrics *metrics.Metrics

	CORSOrigins    []string
	RequestTimeout time.Duration
	Version        string
}

type Server struct {
	address string
	deps    Deps
	logger  logging.Logger
	handler http.Handler
	now     func() time.Time
}

func NewServer(address string, logger logging.Logger, deps Deps) *Server {
	if deps.Version == "" {
		deps.Version = "1.0.0"
	}
	s := &Server{
		address: address,
		deps:    deps,
		logger:  logger.With("module", "http_server"),
		now:     time.Now,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
