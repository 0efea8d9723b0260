// Package retrylimit provides an adaptive rate limiter and a retry loop for
// outbound API calls. Works with any error type, with special handling for
// errors that carry an HTTP status code.
//
// Example usage:
//
//	lim := retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5)
//	err := retrylimit.Do(ctx, lim, retrylimit.DefaultRetryConfig(), func() error {
//	    return send()
//	})
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// Limiter
// =============================================================================

// AdaptiveLimiter manages a rate limit that adjusts automatically based
// on the outcome of requests. It increases on success and decreases when
// the remote side pushes back. Thread-safe.
type AdaptiveLimiter struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	lastError time.Time
	now       func() time.Time
}

// NewAdaptiveLimiter creates an AdaptiveLimiter.
//
// Parameters:
//   - initial: starting requests per second
//   - min: minimum allowed rate
//   - max: maximum allowed rate
//   - stepUp: increment on success
//   - stepDown: multiplier applied on pushback (e.g., 0.5 to halve)
func NewAdaptiveLimiter(initial, min, max, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if min < 1 {
		min = 1
	}
	if initial < min {
		initial = min
	}
	if max < initial {
		max = initial
	}
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, burstFor(initial)),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
		now:      time.Now,
	}
}

// Wait blocks until a token is available or the context is canceled.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success raises the rate, unless the last pushback was recent.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.now().Sub(a.lastError) > 10*time.Second {
		a.setLimit(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited lowers the rate after the remote side signalled overload.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = a.now()
	a.setLimit(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) setLimit(l rate.Limit) {
	if l > a.maxLimit {
		l = a.maxLimit
	} else if l < a.minLimit {
		l = a.minLimit
	}
	if l != a.limiter.Limit() {
		a.limiter.SetLimit(l)
		a.limiter.SetBurst(burstFor(l))
	}
}

func burstFor(l rate.Limit) int {
	if l < 1 {
		return 1
	}
	return int(l)
}

// =============================================================================
// Errors
// =============================================================================

// HTTPError is implemented by errors that carry an HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// FatalError wraps errors that should stop retries immediately.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

// Fatal marks err as not worth retrying. Fatal(nil) is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// =============================================================================
// Retry
// =============================================================================

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts    int           // Maximum number of attempts, at least 1
	InitialDelay   time.Duration // Initial delay between retries
	MaxDelay       time.Duration // Maximum delay between retries
	RateLimitDelay time.Duration // Fixed delay after a 429
	Multiplier     float64       // Delay multiplier for exponential backoff
	Jitter         bool          // Add up to 25% random jitter
	OnRetry        func(attempt int, err error)
}

// DefaultRetryConfig returns the configuration used for chat API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    4,
		InitialDelay:   250 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		RateLimitDelay: time.Second,
		Multiplier:     2.0,
		Jitter:         true,
	}
}

// Do executes fn until it succeeds, returns a FatalError, the context ends or
// the attempts are exhausted. Only rate-limit (429) and server (5xx) errors are
// retried; any other error is returned as is. A FatalError is unwrapped before
// it is returned.
func Do(ctx context.Context, lim *AdaptiveLimiter, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	delay := cfg.InitialDelay

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if lim != nil {
			if werr := lim.Wait(ctx); werr != nil {
				return werr
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			return nil
		}

		var fatal *FatalError
		if errors.As(err, &fatal) {
			return fatal.Err
		}

		wait := delay
		switch {
		case isRateLimitError(err):
			if lim != nil {
				lim.RateLimited()
			}
			wait = cfg.RateLimitDelay
		case isServerError(err):
			if lim != nil {
				lim.RateLimited()
			}
		default:
			return err
		}

		if attempt == cfg.MaxAttempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		if cfg.Jitter {
			wait = addJitter(wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("max attempts (%d) exceeded: %w", cfg.MaxAttempts, err)
}

// addJitter adds random jitter (0-25% of delay).
func addJitter(delay time.Duration) time.Duration {
	if delay < 4 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(delay/4)))
}

func isRateLimitError(err error) bool {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode() == http.StatusTooManyRequests
	}
	return false
}

func isServerError(err error) bool {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode()
		return code >= 500 && code < 600
	}
	return false
}
