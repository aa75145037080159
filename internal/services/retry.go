package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig defines retry behavior for failed requests
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig is three retries starting at one second, capped at ten
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// HTTPStatusError is returned when an upstream answers with a non-2xx status
type HTTPStatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// Retryable is true for rate limiting and server errors
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// StatusCode extracts the upstream status from an error chain, or 0
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// calculateDelay calculates exponential backoff delay
func (r RetryConfig) calculateDelay(attempt int) time.Duration {
	delay := float64(r.InitialDelay)*
		(r.BackoffFactor*float64(attempt)) +
		(rand.Float64() * 0.1 * float64(r.InitialDelay)) // jitter

	if attempt == 0 {
		delay = float64(r.InitialDelay)
	}
	if delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}

	return time.Duration(delay)
}

// do runs fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. Client errors (4xx other than 429) are not retried.
func (r RetryConfig) do(ctx context.Context, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return err
		}
		if attempt == r.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.calculateDelay(attempt)):
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", r.MaxRetries+1, lastErr)
}

// ErrTimeout is returned when a raced call loses to its timer
var ErrTimeout = errors.New("timed out")

type raceResult[T any] struct {
	value T
	err   error
}

// raceTimeout runs fn in its own goroutine and returns whichever comes first:
// fn's result, the timer, or cancellation of ctx. fn receives a context that
// is cancelled when the race ends, but a provider that ignores it keeps
// running with no observer.
func raceTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	raceCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan raceResult[T], 1)
	go func() {
		value, err := fn(raceCtx)
		done <- raceResult[T]{value: value, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-raceCtx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
