package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"tickstore/internal/limiter"
	"tickstore/internal/models"
)

const (
	defaultRecentLimit = 500
	maxRecentLimit     = 5000
	maxIngestBody      = 4 << 20
)

type ingestResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// handleIngest 接收单个 tick 或 tick 数组，全部交给队列后立即返回 202
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	ticks, rejected, err := models.DecodeTicks(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.limiter.Admit(len(ticks)); err != nil {
		if errors.Is(err, limiter.ErrFrameExceedsBurst) {
			// 重试同样的请求永远不会通过，不给 Retry-After
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	}

	for _, t := range ticks {
		s.producer.Enqueue(t)
	}
	writeJSON(w, http.StatusAccepted, ingestResponse{Accepted: len(ticks), Rejected: rejected})
}

// handleRecent 返回最新的 limit 条记录 (新的在前)
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}

	rows, err := s.reader.FetchRecent(r.Context(), limit)
	if err != nil {
		slog.Error("fetch_recent_failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to retrieve ticks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ticks": rows, "count": len(rows)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed_to_encode_response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
