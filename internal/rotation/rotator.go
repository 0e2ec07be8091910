// Package rotation hands out credentials round-robin per named group.
package rotation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vietddude/devkit/internal/core/domain"
	"github.com/vietddude/devkit/internal/infra/storage"
	"github.com/vietddude/devkit/internal/metrics"
	"github.com/vietddude/devkit/internal/redact"
)

// Rotator selects the next credential of a group. State failures never
// reach the caller.
type Rotator struct {
	mu        sync.Mutex
	store     storage.RotationStore
	logger    *slog.Logger
	onDegrade storage.DegradeFunc
}

// Option configures a Rotator.
type Option func(*Rotator)

// WithLogger sets the logger used for degraded-mode diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Rotator) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDegradeHook registers an observer for absorbed state failures.
func WithDegradeHook(fn storage.DegradeFunc) Option {
	return func(r *Rotator) { r.onDegrade = fn }
}

// NewRotator creates a rotator over store.
func NewRotator(store storage.RotationStore, opts ...Option) *Rotator {
	r := &Rotator{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next returns the credential after the one last handed out for group.
// It returns "" for an empty list and never touches state for a single
// credential.
func (r *Rotator) Next(ctx context.Context, credentials []string, group string) string {
	switch len(credentials) {
	case 0:
		return ""
	case 1:
		return credentials[0]
	}

	if group == "" {
		group = string(domain.DefaultGroup)
	}
	n := len(credentials)

	r.mu.Lock()
	defer r.mu.Unlock()

	last := -1
	idx, ok, err := r.store.LastIndex(ctx, group)
	switch {
	case err != nil:
		r.degrade("read", group, err)
	case ok && idx >= 0:
		last = idx % n
	}

	next := (last + 1) % n
	if err := r.store.SetLastIndex(ctx, group, next); err != nil {
		r.degrade("write", group, err)
	}

	metrics.RotationSelections.WithLabelValues(group).Inc()
	r.logger.Debug("credential selected",
		"group", group,
		"index", next,
		"of", n,
		"credential", redact.Secret(credentials[next]),
	)
	return credentials[next]
}

// Current returns the stored index for group, or -1 when none is stored or
// the store cannot be read.
func (r *Rotator) Current(ctx context.Context, group string) int {
	if group == "" {
		group = string(domain.DefaultGroup)
	}
	idx, ok, err := r.store.LastIndex(ctx, group)
	if err != nil {
		r.degrade("read", group, err)
		return -1
	}
	if !ok {
		return -1
	}
	return idx
}

func (r *Rotator) degrade(op, group string, err error) {
	serr := &storage.StateIOError{Component: "rotation", Op: op, Key: group, Err: err}
	metrics.StateDegraded.WithLabelValues("rotation", op).Inc()
	r.logger.Debug("rotation state degraded", "op", op, "group", group, "error", err)
	if r.onDegrade != nil {
		r.onDegrade(serr)
	}
}
