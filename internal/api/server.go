// SPDX-License-Identifier: MIT

// Package api exposes the HTTP surface: the video file server Tasker pulls
// from, health and metrics endpoints, and the small control API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/techcuan/cuanbot/internal/analytics"
	"github.com/techcuan/cuanbot/internal/health"
	"github.com/techcuan/cuanbot/internal/jobs"
)

// TrendSource lists current topic candidates.
type TrendSource interface {
	Topics(ctx context.Context) []string
}

// AnalyticsSource serves recent performance rows.
type AnalyticsSource interface {
	Recent(ctx context.Context, n int) ([]analytics.Row, error)
}

// ScheduleSource exposes the armed production slots.
type ScheduleSource interface {
	Upcoming() []time.Time
}

// Config holds the server's own settings.
type Config struct {
	VideosDir string
	// APIToken guards the control API when set; the video and probe surfaces
	// stay open for Tasker and the platform.
	APIToken string
	// RateRPS limits requests per client IP; 0 uses a sane default.
	RateRPS int
}

// Server wires the handlers to their dependencies.
type Server struct {
	cfg       Config
	producer  *jobs.Producer
	trends    TrendSource
	analytics AnalyticsSource
	schedule  ScheduleSource
	health    *health.Manager
}

// NewServer creates the API server.
func NewServer(cfg Config, producer *jobs.Producer, trends TrendSource, analyticsSrc AnalyticsSource, schedule ScheduleSource, healthMgr *health.Manager) *Server {
	if cfg.RateRPS <= 0 {
		cfg.RateRPS = 30
	}
	return &Server{
		cfg:       cfg,
		producer:  producer,
		trends:    trends,
		analytics: analyticsSrc,
		schedule:  schedule,
		health:    healthMgr,
	}
}

// Router builds the chi router with the canonical middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(recoverer)
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(httprate.Limit(
		s.cfg.RateRPS, time.Second,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		}),
	))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Handle("/videos/*", http.StripPrefix("/videos/", s.secureFileServer()))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(bearerAuth(s.cfg.APIToken))
		r.Post("/produce", s.handleProduce)
		r.Get("/status", s.handleStatus)
		r.Get("/trends", s.handleTrends)
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/schedule", s.handleSchedule)
	})

	return r
}
