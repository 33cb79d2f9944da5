package structuring

import (
	"context"
	"time"
)

const (
	// DefaultMaxAttempts はLLM呼び出しの最大試行回数
	DefaultMaxAttempts = 3

	// DefaultPause は失敗後の待機時間
	DefaultPause = 2 * time.Second
)

// RetryPolicy は固定間隔のリトライ方針
type RetryPolicy struct {
	MaxAttempts int
	Pause       time.Duration
}

// DefaultRetryPolicy はデフォルトのリトライ方針（3回、2秒間隔）を返す
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Pause: DefaultPause}
}

// Do は fn が成功するまで最大 MaxAttempts 回実行する
// 最後の試行のエラーをそのまま返す。待機中にコンテキストが終了した場合は ctx.Err() を返す
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && p.Pause > 0 {
			timer := time.NewTimer(p.Pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}
