package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Ready 就绪检查（存储已打开且 drainer 在运行）
func (h *HealthServer) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	dbCheck := h.checkDatabase(ctx)
	drainerCheck := h.checkDrainer()

	w.Header().Set("Content-Type", "application/json")
	if dbCheck.Status == healthyStatus && drainerCheck.Status == healthyStatus {
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
		}); err != nil {
			Logger.Error("failed_to_encode_ready_response", "err", err)
		}
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "not_ready",
		"checks": map[string]Check{
			"database": dbCheck,
			"drainer":  drainerCheck,
		},
	}); err != nil {
		Logger.Error("failed_to_encode_not_ready_response", "err", err)
	}
}

// Live 存活检查（进程是否存活）
func (h *HealthServer) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "alive",
	}); err != nil {
		Logger.Error("failed_to_encode_live_response", "err", err)
	}
}
