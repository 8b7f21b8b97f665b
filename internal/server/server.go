// Package server implements the atdir HTTP surface: the well-known
// resolution endpoint, the per-subdomain registration pages, and the
// form-submission flow driven by the connection state machine.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atdir/atdir/internal/config"
	"github.com/atdir/atdir/internal/netutil"
	"github.com/atdir/atdir/internal/resolver"
	"github.com/atdir/atdir/internal/store/sqlite"
)

// WellKnownPath is the fixed resolution path queried by identity clients.
const WellKnownPath = "/.well-known/atproto-did"

type Server struct {
	cfg      config.Config
	users    *sqlite.Store
	reserved *sqlite.ReservedStore
	resolver *resolver.Resolver
	log      *slog.Logger
}

func New(cfg config.Config, users *sqlite.Store, reserved *sqlite.ReservedStore, res *resolver.Resolver, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		users:    users,
		reserved: reserved,
		resolver: res,
		log:      logger,
	}
}

// Handler builds the request dispatcher.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requireServingDomain)

	r.Get(WellKnownPath, s.handleWellKnown)
	r.Get("/", s.handleRoot)
	r.Post("/", s.handleRegister)
	r.Post("/result", s.handleRegister)
	r.NotFound(s.handleNotFound)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("directory server listening", "addr", s.cfg.Listen, "domain", s.cfg.Domain)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requireServingDomain rejects requests whose host is outside the serving
// domain before any per-request state is created.
func (s *Server) requireServingDomain(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !netutil.ServesDomain(r.Host, s.cfg.Domain) {
			s.log.Debug("rejected host outside serving domain", "host", r.Host)
			writePage(w, notFoundPage())
			return
		}
		next.ServeHTTP(w, r)
	})
}
