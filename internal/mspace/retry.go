package mspace

import (
	"context"
	"errors"
	"time"

	"github.com/mobiwave/mobiwave-gateway/internal/metrics"
)

// Do runs fn with classifier-driven retries: transport-level failures are
// retried per ShouldRetry/RetryDelay before surfacing; anything that is not a
// classified retryable error surfaces immediately.
func Do(ctx context.Context, maxRetries int, fn func(ctx context.Context) error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var last error
	for attempt := 0; ; attempt++ {
		last = fn(ctx)
		if last == nil {
			return nil
		}

		var perr *Error
		if !errors.As(last, &perr) {
			return last
		}
		if !ShouldRetry(perr, attempt, maxRetries) {
			return last
		}

		metrics.ProviderRetriesTotal.WithLabelValues(perr.Code).Inc()

		select {
		case <-ctx.Done():
			return last
		case <-time.After(RetryDelay(perr, attempt)):
		}
	}
}
