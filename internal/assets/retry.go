package assets

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"time"

	"github.com/desertthunder/smartwake/internal/shared"
)

// RetryPolicy configures backoff between fetch attempts of a critical asset.
type RetryPolicy struct {
	MaxRetries    int           // retries after the first attempt
	BaseDelay     time.Duration // delay before the first retry
	MaxDelay      time.Duration // cap for any single delay
	JitterFactor  float64       // 0-1, applied symmetrically
	BackoffFactor float64
}

// ErrorCategory classifies fetch errors for retry decisions.
type ErrorCategory int

const (
	CategoryFatal ErrorCategory = iota
	CategoryRetryable
	CategoryThrottled
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryRetryable:
		return "retryable"
	case CategoryThrottled:
		return "throttled"
	default:
		return "fatal"
	}
}

// ClassifyError decides whether a failed fetch is worth repeating.
// Unknown errors are fatal so that a broken URL doesn't burn the whole retry budget.
func ClassifyError(err error) ErrorCategory {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, shared.ErrInvalidInput):
		return CategoryFatal
	case errors.Is(err, shared.ErrThrottled):
		return CategoryThrottled
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, shared.ErrAssetFetch),
		errors.Is(err, shared.ErrServiceUnavailable),
		errors.Is(err, shared.ErrTimeout):
		return CategoryRetryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryRetryable
	}
	return CategoryFatal
}

// Backoff computes the delay before retry number attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 2
	}

	delay := float64(p.BaseDelay) * math.Pow(factor, float64(attempt-1))
	if p.JitterFactor > 0 {
		delay *= 1 + p.JitterFactor*(2*rand.Float64()-1)
	}
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if delay < 0 {
		delay = float64(p.BaseDelay)
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether another attempt is allowed after retries retries failed with err.
func (p RetryPolicy) ShouldRetry(retries int, err error) bool {
	if ClassifyError(err) == CategoryFatal {
		return false
	}
	return retries < p.MaxRetries
}

// Wait sleeps for the backoff of attempt, doubled for throttled errors, or until ctx ends.
func (p RetryPolicy) Wait(ctx context.Context, attempt int, category ErrorCategory) error {
	delay := p.Backoff(attempt)
	if category == CategoryThrottled {
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
