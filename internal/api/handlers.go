// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/techcuan/cuanbot/internal/health"
	"github.com/techcuan/cuanbot/internal/jobs"
	"github.com/techcuan/cuanbot/internal/log"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "1"
	resp := s.health.Health(r.Context(), verbose)

	status := http.StatusOK
	if resp.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	resp := s.health.Ready(r.Context())

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleProduce starts a cycle in the background. 409 while one is running.
func (s *Server) handleProduce(w http.ResponseWriter, r *http.Request) {
	if s.producer.Busy() {
		writeError(w, http.StatusConflict, "production cycle already running")
		return
	}

	// The cycle outlives the request; carry only correlation, not the
	// request's deadline.
	jobID := uuid.New().String()
	bg := log.ContextWithRequestID(context.WithoutCancel(r.Context()), log.RequestIDFromContext(r.Context()))
	bg = log.ContextWithJobID(bg, jobID)
	go func() {
		if _, err := s.producer.Produce(bg); err != nil && !errors.Is(err, jobs.ErrBusy) {
			log.WithComponent("api").Error().Err(err).Str("event", "produce.failed").Msg("manual production failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "job_id": jobID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.producer.Status())
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"topics": s.trends.Topics(r.Context())})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	n := 20
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeError(w, http.StatusBadRequest, "n must be between 1 and 500")
			return
		}
		n = parsed
	}

	rows, err := s.analytics.Recent(r.Context(), n)
	if err != nil {
		log.WithComponentFromContext(r.Context(), "api").Error().Err(err).Msg("analytics query failed")
		writeError(w, http.StatusInternalServerError, "analytics unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	slots := s.schedule.Upcoming()
	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slot.Format(time.RFC3339))
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}
