package helper

import (
	"fmt"
	"log/slog"
	"math"
	"time"
)

type RetryableFunc[T any] func() (T, bool, error)

// RetryWithBackoff runs operation up to maxRetries+1 times, doubling the
// delay between attempts. Used for one-shot calls such as login; polling
// endpoints never retry, the next tick is the retry.
func RetryWithBackoff[T any](operation RetryableFunc[T], maxRetries int, baseDelay time.Duration) (T, error) {
	var err error
	var result T
	var shouldRetry bool

	for i := 0; i <= maxRetries; i++ {
		result, shouldRetry, err = operation()

		if err == nil {
			return result, nil
		}

		if !shouldRetry {
			return result, err
		}

		if i == maxRetries {
			break
		}

		delay := BackoffDelay(baseDelay, i+1, 0)
		slog.Warn("Operation failed, retrying...", "attempt", i+1, "delay", delay, "error", err)
		time.Sleep(delay)
	}

	return result, fmt.Errorf("operation failed after %d attempts: %w", maxRetries+1, err)
}

// BackoffDelay returns the exponential delay for the nth consecutive failure
// (1-based), capped at cap when cap > 0.
func BackoffDelay(base time.Duration, failures int, cap time.Duration) time.Duration {
	if failures < 1 {
		failures = 1
	}
	delay := base * time.Duration(math.Pow(2, float64(failures-1)))
	if cap > 0 && delay > cap {
		return cap
	}
	return delay
}
