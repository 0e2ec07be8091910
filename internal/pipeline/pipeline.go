// Package pipeline composes credential rotation, deduplication, retry and
// transport into one call.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/devkit/internal/dedupe"
	"github.com/vietddude/devkit/internal/infra/transport"
	"github.com/vietddude/devkit/internal/redact"
	"github.com/vietddude/devkit/internal/retry"
	"github.com/vietddude/devkit/internal/rotation"
)

// Executor performs a single HTTP attempt.
type Executor interface {
	Execute(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Call is one logical request.
type Call struct {
	Request transport.Request

	// Credentials is the rotation pool used when Request.Credential is empty.
	Credentials []string
	Group       string

	// DedupeKey enables the dedupe gate when non-empty.
	DedupeKey string
	Cooldown  time.Duration

	// Policy overrides the pipeline's retry policy.
	Policy *retry.Policy
}

// Result is the outcome of a call.
type Result struct {
	Response *transport.Response
	Skipped  bool
	Dedupe   dedupe.Result
	Attempts int
}

// Pipeline runs calls in the order rotate, dedupe, retry(transport).
type Pipeline struct {
	exec     Executor
	rotator  *rotation.Rotator
	gate     *dedupe.Gate
	policy   retry.Policy
	redactor *redact.Redactor
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRotator enables credential rotation.
func WithRotator(r *rotation.Rotator) Option {
	return func(p *Pipeline) { p.rotator = r }
}

// WithGate enables deduplication.
func WithGate(g *dedupe.Gate) Option {
	return func(p *Pipeline) { p.gate = g }
}

// WithPolicy sets the default retry policy.
func WithPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) { p.policy = policy }
}

// WithRedactor sets the redactor applied to returned errors.
func WithRedactor(r *redact.Redactor) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.redactor = r
		}
	}
}

// WithLogger sets the logger for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Pipeline around exec.
func New(exec Executor, opts ...Option) *Pipeline {
	p := &Pipeline{
		exec:     exec,
		policy:   retry.DefaultPolicy,
		redactor: redact.NewRedactor(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs call. A suppressed duplicate returns a Skipped result and no
// error. Every returned error has credentials masked.
func (p *Pipeline) Execute(ctx context.Context, call Call) (*Result, error) {
	req := call.Request
	p.redactor.Add(req.Credential)

	// Malformed input never advances rotation or enters the retry loop.
	if err := req.Validate(); err != nil {
		return nil, p.redactor.RedactError(err)
	}

	if req.Credential == "" && p.rotator != nil {
		req.Credential = p.rotator.Next(ctx, call.Credentials, call.Group)
		p.redactor.Add(req.Credential)
		if err := req.Validate(); err != nil {
			return nil, p.redactor.RedactError(err)
		}
	}

	if call.DedupeKey != "" && p.gate != nil {
		cooldown := call.Cooldown
		if cooldown == 0 {
			cooldown = dedupe.DefaultCooldown
		}
		res := p.gate.Check(ctx, call.DedupeKey, cooldown)
		if !res.Admitted {
			p.logger.Info("skipped duplicate", "elapsed", res.Elapsed, "cooldown", cooldown)
			return &Result{Skipped: true, Dedupe: res}, nil
		}
	}

	policy := p.policy
	if call.Policy != nil {
		policy = *call.Policy
	}
	onRetry := policy.OnRetry
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		p.logger.Debug("attempt failed, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", p.redactor.RedactError(err),
		)
		if onRetry != nil {
			onRetry(p.redactor.RedactError(err), attempt, delay)
		}
	}

	attempts := 0
	resp, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (*transport.Response, error) {
		attempts = attempt
		resp, err := p.exec.Execute(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := transport.CheckStatus(resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, p.redactor.RedactError(err)
	}

	return &Result{Response: resp, Attempts: attempts, Dedupe: dedupe.Result{Admitted: true}}, nil
}
