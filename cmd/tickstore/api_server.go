package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tickstore/internal/engine"
	"tickstore/internal/limiter"
	"tickstore/internal/models"
	"tickstore/internal/web"
)

// Server 包装 HTTP 服务
type Server struct {
	port     string
	producer models.TickProducer
	reader   models.RecentReader
	limiter  *limiter.RateLimiter
	wsHub    *web.Hub
	health   *engine.HealthServer
	srv      *http.Server
}

func NewServer(port string, producer models.TickProducer, reader models.RecentReader, rl *limiter.RateLimiter, wsHub *web.Hub, health *engine.HealthServer) *Server {
	s := &Server{
		port:     port,
		producer: producer,
		reader:   reader,
		limiter:  rl,
		wsHub:    wsHub,
		health:   health,
	}
	s.srv = &http.Server{
		Addr:              ":" + port,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Routes builds the HTTP handler tree.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/ticks", s.handleIngest)
	mux.HandleFunc("GET /api/ticks/recent", s.handleRecent)

	if s.wsHub != nil {
		s.wsHub.RegisterRoutes(mux)
	}
	if s.health != nil {
		s.health.RegisterRoutes(mux)
	}

	// Prometheus 指标
	mux.Handle("/metrics", promhttp.Handler())

	return AccessLogMiddleware(mux)
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
