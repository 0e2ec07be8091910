// Package retry runs an operation under a bounded exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/vietddude/devkit/internal/metrics"
)

// Policy defines retry behavior.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	JitterMax    time.Duration

	// ShouldRetry decides whether a failed attempt may be retried.
	// Defaults to DefaultShouldRetry.
	ShouldRetry func(err error) bool

	// OnRetry is called before each backoff sleep with the attempt that
	// just failed and the base delay about to be used.
	OnRetry func(err error, attempt int, delay time.Duration)

	// Sleep and Jitter are replaced in tests.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(limit time.Duration) time.Duration
}

// DefaultPolicy provides sensible defaults.
var DefaultPolicy = Policy{
	MaxAttempts:  3,
	InitialDelay: 1 * time.Second,
	MaxDelay:     30 * time.Second,
	JitterMax:    100 * time.Millisecond,
}

// Error is returned when the operation gives up.
type Error struct {
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable is implemented by errors that know whether they are transient.
type Retryable interface {
	Retryable() bool
}

// DefaultShouldRetry refuses authentication failures and retries everything
// else. Errors implementing Retryable can only narrow that further.
func DefaultShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	s := err.Error()
	if strings.Contains(s, "401") || strings.Contains(s, "403") ||
		strings.Contains(strings.ToLower(s), "authentication") {
		return false
	}

	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// Do calls op until it succeeds, the policy refuses a retry, or MaxAttempts
// is reached. Do never makes more than MaxAttempts calls.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	delay := p.InitialDelay

	for attempt := 1; ; attempt++ {
		result, err := op(ctx, attempt)
		if err == nil {
			metrics.RetryAttempts.WithLabelValues("success").Inc()
			return result, nil
		}

		if !p.ShouldRetry(err) || attempt >= p.MaxAttempts {
			metrics.RetryAttempts.WithLabelValues("giveup").Inc()
			return zero, &Error{Attempts: attempt, Err: err}
		}

		metrics.RetryAttempts.WithLabelValues("retry").Inc()
		if p.OnRetry != nil {
			p.OnRetry(err, attempt, delay)
		}

		if serr := p.Sleep(ctx, delay+p.Jitter(p.JitterMax)); serr != nil {
			return zero, &Error{Attempts: attempt, Err: errors.Join(serr, err)}
		}

		delay = min(delay*2, p.MaxDelay)
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = DefaultShouldRetry
	}
	if p.Sleep == nil {
		p.Sleep = sleep
	}
	if p.Jitter == nil {
		p.Jitter = jitter
	}
	return p
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(limit)))
}
