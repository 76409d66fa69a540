// Package health serves a plain liveness endpoint on every service
// process, run as its own small server so it doesn't contend with the
// metrics server for a port.
package health

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server is a minimal HTTP server exposing GET /health -> "OK".
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// New builds a health Server bound to addr (e.g. ":8081").
func New(addr string, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return &Server{server: &http.Server{Addr: addr, Handler: mux}, logger: logger}
}

// Start serves in the background until Stop is called.
func (s *Server) Start() {
	s.logger.Info("starting health endpoint", zap.String("addr", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("health server error", zap.Error(err))
		}
	}()
}

// Stop shuts the health server down gracefully.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
