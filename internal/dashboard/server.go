// Package dashboard serves a small diagnostic web UI over the active
// workspace: blob listing, tensor inspection, and metrics. It is a
// development convenience launched next to the process under debug,
// not part of the bridge's core contract.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gradientworks/tensorbridge/internal/infrastructure/logging"
	"github.com/gradientworks/tensorbridge/internal/infrastructure/monitoring"
	"github.com/gradientworks/tensorbridge/internal/workspace"
)

// Server is the diagnostic dashboard HTTP server.
type Server struct {
	ws       *workspace.Client
	log      *logging.Logger
	metrics  *monitoring.Metrics
	registry *prometheus.Registry
	router   *gin.Engine
	http     *http.Server
}

// Config holds dashboard server settings.
type Config struct {
	Host string
	Port int
}

// Option configures a Server.
type Option func(*Server)

// WithInstrumentation serves an existing metrics collector and its
// registry instead of a private one, so engine-call metrics recorded
// elsewhere in the process show up on /metrics too.
func WithInstrumentation(m *monitoring.Metrics, reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.metrics = m
		s.registry = reg
	}
}

// New creates a dashboard server over a workspace client.
func New(cfg Config, ws *workspace.Client, log *logging.Logger, opts ...Option) *Server {
	metrics, registry := monitoring.New()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		ws:       ws,
		log:      log.Named("dashboard"),
		metrics:  metrics,
		registry: registry,
		router:   router,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(s.metrics.Middleware())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := s.router.Group("/api")
	{
		api.GET("/workspace", s.handleWorkspace)
		api.GET("/blobs", s.handleBlobs)
		api.GET("/blobs/:name", s.handleBlob)
	}

	s.router.GET("/ws", s.handleStream)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("dashboard listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
