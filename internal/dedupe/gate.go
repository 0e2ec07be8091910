// Package dedupe suppresses repeats of a logical message within a cooldown.
package dedupe

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/devkit/internal/core/domain"
	"github.com/vietddude/devkit/internal/infra/storage"
	"github.com/vietddude/devkit/internal/metrics"
)

// DefaultCooldown is the notification cooldown.
const DefaultCooldown = 12 * time.Second

// Result is the outcome of Check.
type Result struct {
	Admitted bool
	Elapsed  time.Duration
	Message  string
}

// Gate decides whether a keyed message may proceed.
type Gate struct {
	store     storage.DedupeStore
	logger    *slog.Logger
	onDegrade storage.DegradeFunc
	now       func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger used for degraded-mode diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithDegradeHook registers an observer for absorbed state failures.
func WithDegradeHook(fn storage.DegradeFunc) Option {
	return func(g *Gate) { g.onDegrade = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a gate over store.
func NewGate(store storage.DedupeStore, opts ...Option) *Gate {
	g := &Gate{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HashKey returns the md5 hex digest used as the record name for key.
func HashKey(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Check admits key unless it was admitted less than cooldown ago. A
// suppressed check leaves the record untouched. Store failures admit.
func (g *Gate) Check(ctx context.Context, key string, cooldown time.Duration) Result {
	hash := HashKey(key)
	now := g.now().Unix()

	last, ok, err := g.store.LastSeen(ctx, hash)
	if err != nil {
		g.degrade("read", hash, err)
		ok = false
	}

	if ok {
		// A record from the future (clock skew) counts as just admitted.
		elapsed := max(time.Duration(now-last.Unix())*time.Second, 0)
		if elapsed < cooldown {
			metrics.DedupeDecisions.WithLabelValues(string(domain.DedupeSuppress)).Inc()
			return Result{
				Admitted: false,
				Elapsed:  elapsed,
				Message: fmt.Sprintf("Skipped duplicate notification (%ds ago, cooldown: %ds)",
					int64(elapsed/time.Second), int64(cooldown/time.Second)),
			}
		}
	}

	g.record(ctx, hash, now)
	metrics.DedupeDecisions.WithLabelValues(string(domain.DedupeAdmit)).Inc()
	return Result{Admitted: true, Message: "Notification allowed"}
}

// Record marks key as admitted now without checking the cooldown.
func (g *Gate) Record(ctx context.Context, key string) {
	g.record(ctx, HashKey(key), g.now().Unix())
}

func (g *Gate) record(ctx context.Context, hash string, now int64) {
	if err := g.store.SetLastSeen(ctx, hash, time.Unix(now, 0)); err != nil {
		g.degrade("write", hash, err)
	}
}

// Clear forgets key so its next check is admitted.
func (g *Gate) Clear(ctx context.Context, key string) {
	hash := HashKey(key)
	if err := g.store.Delete(ctx, hash); err != nil {
		g.degrade("clear", hash, err)
	}
}

// ClearAll forgets every key.
func (g *Gate) ClearAll(ctx context.Context) {
	if err := g.store.DeleteAll(ctx); err != nil {
		g.degrade("clear", "", err)
	}
}

func (g *Gate) degrade(op, hash string, err error) {
	serr := &storage.StateIOError{Component: "dedupe", Op: op, Key: hash, Err: err}
	metrics.StateDegraded.WithLabelValues("dedupe", op).Inc()
	g.logger.Debug("dedupe state degraded", "op", op, "hash", hash, "error", err)
	if g.onDegrade != nil {
		g.onDegrade(serr)
	}
}
