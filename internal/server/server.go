// Package server assembles the HTTP listener, the websocket endpoint and
// the message router into one runnable unit.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/curve/server/config"
	"github.com/curve/server/internal/network"
	"github.com/curve/server/internal/router"
)

// Server is the game server instance: one router, one HTTP listener with
// the /ws and /health endpoints.
type Server struct {
	cfg      *config.ServerConfig
	router   *router.Router
	upgrader websocket.Upgrader
	httpSrv  *http.Server
	log      *logrus.Logger
}

// New creates a server from the given configuration.
func New(cfg *config.ServerConfig, logger *logrus.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		router: router.New(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client is served from a different origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler: mux,
	}

	return s
}

// Router exposes the router, used by the debug UI for room snapshots.
func (s *Server) Router() *router.Router {
	return s.router
}

// Handler returns the HTTP handler. Used by tests to serve the full stack
// without binding a port.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves until the context is cancelled, then shuts down cleanly.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.router.Run(ctx)
	})

	g.Go(func() error {
		s.log.WithField("addr", s.httpSrv.Addr).Info("server listening")
		if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// handleHealth answers load balancer probes: 200, empty body.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleWebSocket upgrades the connection and hands it to a fresh client
// adapter. Each client gets two goroutines: one reading, one writing.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := network.NewClient(ws, s.router, s.log)
	s.log.WithFields(logrus.Fields{
		"user":   client.ID(),
		"remote": ws.RemoteAddr().String(),
	}).Info("new connection")

	client.Start()
}
