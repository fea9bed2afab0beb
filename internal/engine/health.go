package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	healthyStatus   = "healthy"
	degradedStatus  = "degraded"
	unhealthyStatus = "unhealthy"
)

// HealthStatus 健康状态响应
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
}

// Check 单个检查项
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// StoreProbe is the view of a TickStore the health checks need.
type StoreProbe interface {
	State() StoreState
	DB() *sqlx.DB
	QueueLen() int
}

// HealthServer 健康检查服务器
type HealthServer struct {
	store          StoreProbe
	mirrorDir      string
	minFreePercent float64
	queueWarnDepth int
}

func NewHealthServer(store StoreProbe, mirrorDir string, minFreePercent float64) *HealthServer {
	return &HealthServer{
		store:          store,
		mirrorDir:      mirrorDir,
		minFreePercent: minFreePercent,
		queueWarnDepth: 50_000,
	}
}

// RegisterRoutes 注册健康检查路由
func (h *HealthServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/healthz/ready", h.Ready)
	mux.HandleFunc("/healthz/live", h.Live)
}

// Healthz 完整健康检查
func (h *HealthServer) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := HealthStatus{
		Timestamp: time.Now(),
		Checks: map[string]Check{
			"database": h.checkDatabase(ctx),
			"drainer":  h.checkDrainer(),
			"queue":    h.checkQueue(),
			"mirror":   h.checkMirror(),
		},
	}

	// degraded 不算失败
	allHealthy := true
	for _, c := range status.Checks {
		if c.Status == unhealthyStatus {
			allHealthy = false
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if allHealthy {
		status.Status = healthyStatus
		w.WriteHeader(http.StatusOK)
	} else {
		status.Status = unhealthyStatus
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(status); err != nil {
		Logger.Error("failed_to_encode_health_response", "err", err)
	}
}
