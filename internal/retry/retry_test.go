package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/devkit/internal/infra/transport"
)

type recorder struct {
	sleeps   []time.Duration
	attempts []int
	delays   []time.Duration
}

func (r *recorder) policy(maxAttempts int, initial, maxDelay time.Duration) Policy {
	return Policy{
		MaxAttempts:  maxAttempts,
		InitialDelay: initial,
		MaxDelay:     maxDelay,
		JitterMax:    10 * time.Millisecond,
		OnRetry: func(_ error, attempt int, delay time.Duration) {
			r.attempts = append(r.attempts, attempt)
			r.delays = append(r.delays, delay)
		},
		Sleep: func(_ context.Context, d time.Duration) error {
			r.sleeps = append(r.sleeps, d)
			return nil
		},
		Jitter: func(time.Duration) time.Duration { return 5 * time.Millisecond },
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	rec := &recorder{}
	calls := 0
	got, err := Do(context.Background(), rec.policy(3, time.Second, 30*time.Second),
		func(context.Context, int) (string, error) {
			calls++
			return "ok", nil
		})
	if err != nil || got != "ok" {
		t.Fatalf("Do = %q, %v", got, err)
	}
	if calls != 1 || len(rec.sleeps) != 0 {
		t.Errorf("calls = %d sleeps = %d, want 1 and 0", calls, len(rec.sleeps))
	}
}

func TestDo_ExhaustsBudget(t *testing.T) {
	rec := &recorder{}
	calls := 0
	errNet := errors.New("connection reset by peer")

	_, err := Do(context.Background(), rec.policy(3, time.Second, 30*time.Second),
		func(_ context.Context, attempt int) (int, error) {
			calls++
			if attempt != calls {
				t.Errorf("attempt = %d, want %d", attempt, calls)
			}
			return 0, errNet
		})

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("error %v is not *Error", err)
	}
	if rerr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", rerr.Attempts)
	}
	if !errors.Is(err, errNet) {
		t.Error("last error not wrapped")
	}

	wantSleeps := []time.Duration{time.Second + 5*time.Millisecond, 2*time.Second + 5*time.Millisecond}
	if len(rec.sleeps) != len(wantSleeps) {
		t.Fatalf("sleeps = %v, want %v", rec.sleeps, wantSleeps)
	}
	for i := range wantSleeps {
		if rec.sleeps[i] != wantSleeps[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, rec.sleeps[i], wantSleeps[i])
		}
	}
	if len(rec.attempts) != 2 || rec.attempts[0] != 1 || rec.attempts[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", rec.attempts)
	}
}

func TestDo_DelayCapped(t *testing.T) {
	rec := &recorder{}
	_, _ = Do(context.Background(), rec.policy(6, time.Second, 3*time.Second),
		func(context.Context, int) (struct{}, error) {
			return struct{}{}, errors.New("HTTP 503: unavailable")
		})

	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second, 3 * time.Second}
	if len(rec.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, rec.delays[i], want[i])
		}
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	rec := &recorder{}
	calls := 0
	_, err := Do(context.Background(), rec.policy(5, time.Second, 30*time.Second),
		func(context.Context, int) (int, error) {
			calls++
			return 0, errors.New("HTTP 401: unauthorized")
		})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(rec.attempts) != 0 {
		t.Errorf("OnRetry called %d times, want 0", len(rec.attempts))
	}
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Attempts != 1 {
		t.Errorf("err = %v, want *Error with 1 attempt", err)
	}
}

func TestDo_RecoversAfterFailures(t *testing.T) {
	rec := &recorder{}
	got, err := Do(context.Background(), rec.policy(3, time.Millisecond, time.Second),
		func(_ context.Context, attempt int) (int, error) {
			if attempt < 3 {
				return 0, errors.New("timeout")
			}
			return attempt, nil
		})
	if err != nil || got != 3 {
		t.Errorf("Do = %d, %v, want 3, nil", got, err)
	}
}

func TestDo_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour},
		func(context.Context, int) (int, error) {
			calls++
			return 0, errors.New("network down")
		})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled in chain", err)
	}
}

func TestDo_ZeroMaxAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, func(context.Context, int) (int, error) {
		calls++
		return 0, errors.New("boom")
	})
	if calls != 1 || err == nil {
		t.Errorf("calls = %d err = %v, want 1 and an error", calls, err)
	}
}

type flagged struct{ retry bool }

func (f flagged) Error() string   { return "quota exhausted" }
func (f flagged) Retryable() bool { return f.retry }

func TestDefaultShouldRetry(t *testing.T) {
	tests := []struct {
		err    error
		expect bool
	}{
		{nil, false},
		{errors.New("HTTP 401: unauthorized"), false},
		{errors.New("HTTP 403: forbidden"), false},
		{errors.New("Authentication failed"), false},
		{errors.New("HTTP 429: slow down"), true},
		{errors.New("HTTP 500: boom"), true},
		{errors.New("request timeout"), true},
		{errors.New("connection refused"), true},
		{flagged{retry: true}, true},
		{flagged{retry: false}, false},
		{&transport.HTTPError{StatusCode: 400, Body: "Authentication failed: invalid API key"}, false},
		{&transport.HTTPError{StatusCode: 502, Body: "bad gateway"}, true},
		{&transport.RateLimitError{StatusCode: 429, Body: "authentication quota"}, false},
	}

	for _, tt := range tests {
		if got := DefaultShouldRetry(tt.err); got != tt.expect {
			t.Errorf("DefaultShouldRetry(%v) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestJitterBounds(t *testing.T) {
	if got := jitter(0); got != 0 {
		t.Errorf("jitter(0) = %v", got)
	}
	for range 100 {
		if got := jitter(100 * time.Millisecond); got < 0 || got >= 100*time.Millisecond {
			t.Fatalf("jitter out of range: %v", got)
		}
	}
}

func TestDo_BackoffSequenceWithJitter(t *testing.T) {
	var sleeps []time.Duration
	p := Policy{
		MaxAttempts:  8,
		InitialDelay: 1000 * time.Millisecond,
		MaxDelay:     30000 * time.Millisecond,
		JitterMax:    100 * time.Millisecond,
		Sleep: func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		},
	}

	_, _ = Do(context.Background(), p, func(context.Context, int) (int, error) {
		return 0, errors.New("HTTP 502: bad gateway")
	})

	bases := []time.Duration{1000, 2000, 4000, 8000, 16000, 30000, 30000}
	if len(sleeps) != len(bases) {
		t.Fatalf("got %d sleeps, want %d", len(sleeps), len(bases))
	}
	for i, base := range bases {
		lo := base * time.Millisecond
		hi := lo + 100*time.Millisecond
		if sleeps[i] < lo || sleeps[i] >= hi {
			t.Errorf("sleep[%d] = %v, want in [%v, %v)", i, sleeps[i], lo, hi)
		}
	}
}
