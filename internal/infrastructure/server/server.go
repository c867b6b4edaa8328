package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/netkit/internal/infrastructure/monitoring"
)

const shutdownTimeout = 5 * time.Second

// Server exposes the toolkit's metrics over HTTP.
type Server struct {
	router  *gin.Engine
	metrics *monitoring.Metrics
	logger  *zap.Logger
	http    *http.Server
}

// New builds the router. Routes:
//
//	GET /metrics       Prometheus exposition
//	GET /metrics/json  running totals
//	GET /health        liveness
func New(metrics *monitoring.Metrics, logger *zap.Logger, development bool) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{router: router, metrics: metrics, logger: logger}
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/metrics/json", s.snapshot)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) snapshot(c *gin.Context) {
	snap := s.metrics.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"total_requests":     snap.TotalRequests,
		"total_errors":       snap.TotalErrors,
		"refreshes":          snap.Refreshes,
		"active_connections": snap.ActiveConnections,
		"avg_duration_s":     snap.AverageDuration(),
		"uptime_s":           snap.Uptime.Seconds(),
	})
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Metrics server listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Metrics server shutdown", zap.Error(err))
		return err
	}
	s.logger.Info("Metrics server stopped")
	return nil
}
