package openai

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// newRequestLimiter は1分あたりのリクエスト数を制限するリミッタを返す
// requestsPerMinute が0以下の場合は nil（制限なし）
func newRequestLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

// waitLimiter はリミッタが許可するまで待機する
// contextがキャンセルされた場合はエラーを返す
func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}
