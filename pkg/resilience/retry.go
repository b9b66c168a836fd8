// Package resilience provides retry with exponential backoff for outbound calls.
// Every model consultation and every tool HTTP call goes through Do.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"tripplanner/pkg/apperr"
	"tripplanner/pkg/logx"
)

// Defaults for Options.
const (
	DefaultRetries    = 2
	DefaultBaseDelay  = 200 * time.Millisecond
	DefaultMaxElapsed = 30 * time.Second
)

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// Classifier decides whether a failure is worth another attempt.
type Classifier func(error) bool

// Options configures Do. Zero durations fall back to the defaults; Retries is taken as given.
//
//nolint:govet // fieldalignment: logical grouping preferred
type Options struct {
	Retries    int           // Additional attempts after the first
	BaseDelay  time.Duration // Delay before the first retry; doubles each attempt
	MaxElapsed time.Duration // Wall-clock budget across all attempts
	Classifier Classifier    // Defaults to IsRetryable
	Name       string        // Operation name for logging
	Logger     *logx.Logger
}

// DefaultOptions returns the stock retry policy.
func DefaultOptions() Options {
	return Options{
		Retries:    DefaultRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxElapsed: DefaultMaxElapsed,
	}
}

func (o Options) withDefaults() Options {
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxElapsed <= 0 {
		o.MaxElapsed = DefaultMaxElapsed
	}
	if o.Classifier == nil {
		o.Classifier = IsRetryable
	}
	if o.Name == "" {
		o.Name = "operation"
	}
	return o
}

// Delay returns the backoff before retry number attempt (0-based): BaseDelay * 2^attempt.
func (o Options) Delay(attempt int) time.Duration {
	o = o.withDefaults()
	return time.Duration(float64(o.BaseDelay) * math.Pow(2, float64(attempt)))
}

// IsRetryable reports whether err is transient: a failure with no HTTP status
// (network trouble), a 429, or any 5xx. Cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var sc StatusCoder
	if !errors.As(err, &sc) {
		return true
	}
	status := sc.StatusCode()
	if status == 0 {
		return true
	}
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

// Do runs op, retrying transient failures with exponential backoff.
//
// op runs immediately. After a failure it is retried while fewer than Retries
// retries have been made, the elapsed time is under MaxElapsed, and the
// classifier accepts the error. The last error is returned unchanged on
// exhaustion. A TimeoutError is returned only if the budget ran out before any
// attempt completed.
func Do[T any](ctx context.Context, op func(context.Context) (T, error), opts Options) (T, error) {
	opts = opts.withDefaults()
	var zero T

	deadline := time.Now().Add(opts.MaxElapsed)
	attempts := 0
	var lastErr error

	for retry := 0; ; retry++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return zero, fmt.Errorf("%s: %w", opts.Name, err)
		}

		result, err := op(ctx)
		attempts++
		if err == nil {
			return result, nil
		}
		lastErr = err

		if retry >= opts.Retries || !time.Now().Before(deadline) || !opts.Classifier(err) {
			break
		}

		delay := opts.Delay(retry)
		if remaining := time.Until(deadline); delay > remaining {
			delay = remaining
		}
		if opts.Logger != nil {
			opts.Logger.Warn("🔄 %s failed (attempt %d/%d), retrying in %v: %v", opts.Name, attempts, opts.Retries+1, delay, err)
		}
		if sleep(ctx, delay) != nil {
			return zero, lastErr
		}
	}

	if lastErr == nil {
		return zero, apperr.NewTimeoutError(fmt.Sprintf("%s failed after %d attempts within %v", opts.Name, attempts, opts.MaxElapsed))
	}
	return zero, lastErr
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // caller returns the last operation error instead
	case <-timer.C:
		return nil
	}
}
