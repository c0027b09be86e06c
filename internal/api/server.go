package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/yashs662/holodeck/internal/config"
	"github.com/yashs662/holodeck/internal/logger"
	"github.com/yashs662/holodeck/internal/stores"
)

// Server serves the holodeck API over HTTP.
type Server struct {
	httpServer *http.Server

	mu   sync.Mutex
	addr net.Addr
}

func NewServer(cfg *config.Config, store *stores.SimulationStore) *Server {
	handlers := NewHandlers(store, cfg.Server)
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      handlers.Routes(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener. It returns nil after a clean
// Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()

	logger.Infof("Holodeck server is listening on %s", listener.Addr())
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr reports the bound address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
