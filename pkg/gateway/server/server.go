package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/vango-go/vai-copilot/pkg/gateway/bridge"
	"github.com/vango-go/vai-copilot/pkg/gateway/config"
	"github.com/vango-go/vai-copilot/pkg/gateway/handlers"
	"github.com/vango-go/vai-copilot/pkg/gateway/mw"
)

// Deps are the components the server routes to. Bridge and History may be
// nil.
type Deps struct {
	Engine  handlers.StateSource
	Bridge  *bridge.Handler
	Hub     *bridge.Hub
	History handlers.HistoryReader
}

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	router *mux.Router
	deps   Deps
}

func New(cfg config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Hub == nil {
		deps.Hub = bridge.NewHub(logger)
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		router: mux.NewRouter(),
		deps:   deps,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Handle("/healthz", handlers.HealthHandler{}).Methods(http.MethodGet)

	s.router.Handle("/readyz", handlers.ReadyHandler{
		Engine:   s.deps.Engine,
		Draining: s.deps.Hub.Draining,
		Clients:  s.deps.Hub.Count,
	}).Methods(http.MethodGet)

	if s.deps.Bridge != nil {
		s.router.Handle("/v1/ws", s.deps.Bridge)
	}

	hist := handlers.HistoryHandler{Store: s.deps.History, Logger: s.logger}
	api := s.router.PathPrefix("/v1/history").Subrouter()
	api.HandleFunc("/sessions", hist.ListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/turns", hist.SessionTurns).Methods(http.MethodGet)

	s.router.NotFoundHandler = handlers.NotFoundHandler{}
}

func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	})

	var h http.Handler = s.router
	h = c.Handler(h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// HTTPServer builds the listener-side server with the configured timeouts.
func (s *Server) HTTPServer(baseCtx context.Context) *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
}

// Shutdown drains the bridge: new upgrades are refused, connected clients
// are closed, then the HTTP server stops within the grace period.
func (s *Server) Shutdown(ctx context.Context, srv *http.Server) error {
	if n := s.deps.Hub.Drain(); n > 0 {
		s.logger.Info("closing bridge clients", "clients", n)
	}
	if !s.deps.Hub.Wait(ctx) {
		s.logger.Warn("bridge clients did not disconnect before deadline")
	}

	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownTimeout returns the configured grace period, with a floor.
func (s *Server) ShutdownTimeout() time.Duration {
	if s.cfg.ShutdownGracePeriod <= 0 {
		return 5 * time.Second
	}
	return s.cfg.ShutdownGracePeriod
}
