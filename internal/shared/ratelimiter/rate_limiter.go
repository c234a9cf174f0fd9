package ratelimiter

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterInterface は、ソースオブジェクト読み込みなどの操作の頻度を制限するインターフェースです。
type RateLimiterInterface interface {
	Wait(ctx context.Context) error
}

// RateLimiterは、トークンバケット方式で操作の頻度を制限します。
type RateLimiter struct {
	limiter *rate.Limiter
	name    string
}

// NewRateLimiterは新しいRateLimiterのインスタンスを生成します。
// perSecond が0以下の場合は無制限になります。burst が1未満の場合は1を使います。
func NewRateLimiter(name string, perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		name:    name,
	}
}

// Waitはトークンが得られるまで待機します。ctxがキャンセルされた場合はエラーを返します。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limiter.Limit() == rate.Inf {
		return nil
	}
	// burst is at least 1, so a single-token reservation always succeeds
	r := rl.limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	slog.DebugContext(ctx, "rate limit hit, waiting", "limiter", rl.name, "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Unlimited は制限なしのRateLimiterを返します。
func Unlimited() *RateLimiter {
	return NewRateLimiter("unlimited", 0, 1)
}
