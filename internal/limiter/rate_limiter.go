package limiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
)

// DefaultBurstSize is used when a positive rate is configured without a burst.
const DefaultBurstSize = 100

var (
	// ErrFrameExceedsBurst: 帧比令牌桶还大，等待也永远取不到令牌，客户端需拆帧
	ErrFrameExceedsBurst = errors.New("frame exceeds ingest burst")
	ErrRateLimited       = errors.New("rate limit exceeded")
)

// RateLimiter 保护 ingest 入口的令牌桶；rps <= 0 表示不限流
type RateLimiter struct {
	limiter *rate.Limiter
	maxRPS  float64
}

// NewRateLimiter 创建一个新的限流器
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		slog.Info("✅ Ingest rate limiter disabled", "mode", "unlimited")
		return &RateLimiter{}
	}
	if burst <= 0 {
		burst = DefaultBurstSize
	}
	slog.Info("✅ Ingest rate limiter configured", "rps", rps, "burst", burst)
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		maxRPS:  rps,
	}
}

// Admit 为一帧 n 条 tick 取令牌
// n 超过 burst 时返回 ErrFrameExceedsBurst (重试无意义)，令牌暂时不足时返回 ErrRateLimited
func (rl *RateLimiter) Admit(n int) error {
	if rl == nil || rl.limiter == nil || n <= 0 {
		return nil
	}
	if burst := rl.limiter.Burst(); n > burst {
		return fmt.Errorf("%w: %d ticks, burst %d", ErrFrameExceedsBurst, n, burst)
	}
	if !rl.limiter.AllowN(timeNow(), n) {
		return ErrRateLimited
	}
	return nil
}

// Wait 阻塞直到获取令牌（或上下文取消）
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil || rl.limiter == nil {
		return ctx.Err()
	}
	return rl.limiter.Wait(ctx)
}

// MaxRPS 返回当前配置的最大 RPS（用于监控），0 表示不限流
func (rl *RateLimiter) MaxRPS() float64 {
	if rl == nil {
		return 0
	}
	return rl.maxRPS
}

// Burst returns the bucket size, 0 when unlimited.
func (rl *RateLimiter) Burst() int {
	if rl == nil || rl.limiter == nil {
		return 0
	}
	return rl.limiter.Burst()
}
