package wildweb

import (
	"context"
	"errors"
	"time"
)

// ErrIncompleteHarvest reports a grid harvest that surfaced fewer rows than
// the grid advertised, or none at all. It is retryable.
var ErrIncompleteHarvest = errors.New("incomplete grid harvest")

// LinearRetryPolicy retries center harvests with a linearly growing delay
// (5s, 10s, 15s, ...), which keeps pressure off the grid backend while it
// finishes hydrating.
type LinearRetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
}

// NewLinearRetryPolicy builds a policy with sane defaults when arguments
// are zero: 5 attempts, 5s base delay.
func NewLinearRetryPolicy(maxAttempts int, baseDelay time.Duration) *LinearRetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if baseDelay <= 0 {
		baseDelay = 5 * time.Second
	}
	return &LinearRetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// ShouldRetry decides whether the error is retryable.
func (p *LinearRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Backoff returns the wait duration before the next attempt. Attempts are
// 1-based, so the first retry waits one base delay.
func (p *LinearRetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * p.baseDelay
}
