package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Unlimited(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	for i := 0; i < 1000; i++ {
		assert.NoError(t, rl.Admit(1))
	}
	assert.Zero(t, rl.MaxRPS())
	assert.Zero(t, rl.Burst())
	assert.NoError(t, rl.Wait(context.Background()))
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = time.Now })

	rl := NewRateLimiter(10, 5)
	assert.Equal(t, 5, rl.Burst())
	assert.Equal(t, 10.0, rl.MaxRPS())

	assert.NoError(t, rl.Admit(3))
	assert.NoError(t, rl.Admit(2))
	assert.ErrorIs(t, rl.Admit(1), ErrRateLimited)
	assert.ErrorIs(t, rl.Admit(6), ErrFrameExceedsBurst)

	now = now.Add(time.Second)
	assert.NoError(t, rl.Admit(5))
}

func TestRateLimiter_DefaultBurst(t *testing.T) {
	rl := NewRateLimiter(1, 0)
	assert.Equal(t, DefaultBurstSize, rl.Burst())
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	assert.NoError(t, rl.Admit(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, rl.Wait(ctx))
}

func TestRateLimiter_AdmitSeparatesOversizedFrames(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = time.Now })

	rl := NewRateLimiter(50, 100)

	// a full bucket still cannot hold a 150-tick frame, however long the client waits
	for i := 0; i < 3; i++ {
		now = now.Add(time.Second)
		err := rl.Admit(150)
		assert.ErrorIs(t, err, ErrFrameExceedsBurst)
		assert.False(t, errors.Is(err, ErrRateLimited))
	}

	assert.NoError(t, rl.Admit(100))
	assert.ErrorIs(t, rl.Admit(1), ErrRateLimited)

	now = now.Add(time.Second)
	assert.NoError(t, rl.Admit(50))
}

func TestRateLimiter_AdmitUnlimited(t *testing.T) {
	assert.NoError(t, NewRateLimiter(0, 0).Admit(1_000_000))
	var nilLimiter *RateLimiter
	assert.NoError(t, nilLimiter.Admit(10))
}
