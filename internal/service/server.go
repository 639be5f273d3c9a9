package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server wraps the API http.Server
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second, // xlsx exports
		IdleTimeout:       120 * time.Second,
	}
	return &Server{httpServer: s, logger: logger}
}

// Start blocks until the server stops; http.ErrServerClosed after Stop
func (s *Server) Start() error {
	s.logger.Info("Starting revit-qc HTTP server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping revit-qc HTTP server")
	return s.httpServer.Shutdown(ctx)
}
