package engine

import (
	"context"
	"fmt"
	"time"
)

// checkDatabase 检查数据库连接
func (h *HealthServer) checkDatabase(ctx context.Context) Check {
	db := h.store.DB()
	if db == nil {
		return Check{Status: unhealthyStatus, Message: "store not open"}
	}

	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{
			Status:  unhealthyStatus,
			Message: err.Error(),
			Latency: latency.String(),
		}
	}
	return Check{
		Status:  healthyStatus,
		Latency: latency.String(),
	}
}

func (h *HealthServer) checkDrainer() Check {
	state := h.store.State()
	if state != StateRunning {
		return Check{Status: unhealthyStatus, Message: "state: " + state.String()}
	}
	return Check{Status: healthyStatus, Message: "state: " + state.String()}
}

// checkQueue 积压过深只报 degraded
func (h *HealthServer) checkQueue() Check {
	depth := h.store.QueueLen()
	status := healthyStatus
	if h.queueWarnDepth > 0 && depth >= h.queueWarnDepth {
		status = degradedStatus
	}
	return Check{Status: status, Message: fmt.Sprintf("depth: %d", depth)}
}

func (h *HealthServer) checkMirror() Check {
	free, err := FreeSpacePercent(h.mirrorDir)
	if err != nil {
		return Check{Status: degradedStatus, Message: err.Error()}
	}
	status := healthyStatus
	if h.minFreePercent > 0 && free < h.minFreePercent {
		status = degradedStatus
	}
	return Check{Status: status, Message: fmt.Sprintf("free: %.1f%%", free)}
}
