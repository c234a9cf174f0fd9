package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewRateLimiter_Unlimited は0以下のレートで無制限になることを検証します。
func TestNewRateLimiter_Unlimited(t *testing.T) {
	t.Parallel()

	for _, rps := range []float64{0, -5} {
		rl := NewRateLimiter("src", rps, 0)
		start := time.Now()
		for i := 0; i < 1000; i++ {
			require.NoError(t, rl.Wait(context.Background()))
		}
		assert.Less(t, time.Since(start), time.Second)
	}
}

// TestRateLimiter_Throttles はバースト超過時に待機が発生することを検証します。
func TestRateLimiter_Throttles(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter("src", 20, 1) // one token every 50ms
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Wait(ctx))
	}
	// first call is free, the next two wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

// TestRateLimiter_ContextCanceled はキャンセル済みコンテキストで待機がエラーになることを検証します。
func TestRateLimiter_ContextCanceled(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter("src", 0.1, 1) // one token every 10s
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestRateLimiter_ZeroBurstUsesOne はバースト0が1に補正され、予約が常に成立することを検証します。
func TestRateLimiter_ZeroBurstUsesOne(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter("src", 0.1, 0)
	assert.Equal(t, 1, rl.limiter.Burst())

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()), "the first token is available at once")
	assert.Less(t, time.Since(start), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start = time.Now()
	assert.ErrorIs(t, rl.Wait(ctx), context.Canceled)
	assert.Less(t, time.Since(start), time.Second, "a cancelled wait returns without sleeping")
}

// TestUnlimited はUnlimitedが即座に戻ることを検証します。
func TestUnlimited(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Unlimited().Wait(context.Background()))
}
