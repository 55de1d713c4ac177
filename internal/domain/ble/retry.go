package ble

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

// retryConfig bounds the exponential-backoff retry loop every device-port
// call runs under.
type retryConfig struct {
	Base       time.Duration
	Ceiling    time.Duration
	MaxRetries int
}

func defaultRetryConfig() retryConfig {
	return retryConfig{Base: time.Second, Ceiling: 10 * time.Second, MaxRetries: 3}
}

// withRetry calls fn, retrying with exponential backoff while fn returns a
// non-nil error, up to cfg.MaxRetries additional attempts or until ctx is
// canceled. A business-logic failure (fn returning a nil error alongside a
// "not successful" result) is not a retry condition: that decision belongs
// to the caller, which inspects the returned value itself.
func withRetry(ctx context.Context, cfg retryConfig, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.Base
	bo.MaxInterval = cfg.Ceiling
	bo.MaxElapsedTime = 0

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
