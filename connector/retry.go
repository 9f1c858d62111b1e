package connector

import (
	"context"
	"time"
)

// Retry calls connectFn until it succeeds or cfg.MaxRetries attempts have
// failed, sleeping an exponentially growing delay between attempts. A nil cfg
// means a single attempt.
func Retry[T any](ctx context.Context, cfg *RetryConfig, connectFn func(context.Context) (T, error)) (T, error) {
	if cfg == nil || cfg.MaxRetries <= 1 {
		return connectFn(ctx)
	}

	delay := cfg.BaseDelay
	if delay == 0 {
		delay = time.Second // default
	}
	backoff := cfg.Backoff
	if backoff < 1 {
		backoff = 2
	}

	var (
		conn T
		err  error
		zero T
	)
	for i := 0; i < cfg.MaxRetries; i++ {
		conn, err = connectFn(ctx)
		if err == nil {
			return conn, nil
		}
		if i == cfg.MaxRetries-1 {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
			delay = time.Duration(float64(delay) * backoff)
			if delay > cfg.MaxDelay && cfg.MaxDelay > 0 {
				delay = cfg.MaxDelay
			}
		}
	}
	return zero, err
}
