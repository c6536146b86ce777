// Package status serves the daemon's health, status, and metrics endpoints.
package status

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xcam/rec-engine/pkg/metrics"
)

// ClaimReporter exposes the coordinator state shown on /status.
type ClaimReporter interface {
	Active() []string
	ActiveCount() int
}

// Server is the read-only HTTP surface of the recording daemon.
type Server struct {
	coord   ClaimReporter
	metrics *metrics.Metrics
	logger  *zap.Logger
	http    *http.Server
}

// New creates a status server listening on the given port.
func New(port string, coord ClaimReporter, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{coord: coord, metrics: m, logger: logger}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.healthz)
	router.GET("/status", s.status)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler(func() {
			m.SetActiveTasks(coord.ActiveCount())
		})))
	}

	s.http = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("status server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	active := s.coord.Active()
	c.JSON(http.StatusOK, gin.H{
		"active":       active,
		"active_count": len(active),
	})
}
