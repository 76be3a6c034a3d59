package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/haulage/internal/auth/domain"
	"github.com/aussiebroadwan/haulage/internal/auth/store"
	"github.com/aussiebroadwan/haulage/pkg/clockx"
	"github.com/aussiebroadwan/haulage/pkg/idx"
	"github.com/aussiebroadwan/haulage/pkg/slogx"
)

const (
	DefaultMaxAttempts   = 5
	DefaultAttemptWindow = 15 * time.Minute
)

// AttemptGuard throttles password guessing. Lockout is soft: it lasts only
// while enough failures sit inside the trailing window, there is no persistent
// locked flag an attacker could set on a victim.
type AttemptGuard struct {
	Attempts    store.LoginAttempts
	MaxAttempts int
	Window      time.Duration
	Clock       clockx.Clock
	Timeout     time.Duration
}

func (g *AttemptGuard) maxAttempts() int {
	if g.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return g.MaxAttempts
}

func (g *AttemptGuard) window() time.Duration {
	if g.Window <= 0 {
		return DefaultAttemptWindow
	}
	return g.Window
}

func (g *AttemptGuard) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.Timeout)
}

// RecordAttempt appends an attempt. Persistence errors are logged and
// dropped, the login flow never fails because of them. The write outlives a
// cancelled request so a disconnecting client still leaves its failure behind.
func (g *AttemptGuard) RecordAttempt(ctx context.Context, identifier, sourceAddr string, success bool) {
	ctx, cancel := g.bounded(context.WithoutCancel(ctx))
	defer cancel()

	now := clockx.Default(g.Clock).Now()
	err := g.Attempts.Record(ctx, domain.LoginAttempt{
		ID:          idx.NewAt(now).String(),
		Identifier:  identifier,
		SourceAddr:  sourceAddr,
		Success:     success,
		AttemptedAt: now,
	})
	if err != nil {
		slogx.FromContext(ctx).Error("failed to record login attempt",
			"identifier", identifier, "success", success, "error", err)
	}
}

// CountFailures counts failed attempts for identifier in the trailing window.
func (g *AttemptGuard) CountFailures(ctx context.Context, identifier string, window time.Duration) (int, error) {
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	since := clockx.Default(g.Clock).Now().Add(-window)
	return g.Attempts.CountFailuresSince(ctx, identifier, since)
}

// ShouldLock reports whether identifier has reached MaxAttempts failures in
// the window. When the count cannot be read it logs and answers false.
func (g *AttemptGuard) ShouldLock(ctx context.Context, identifier string) bool {
	n, err := g.CountFailures(ctx, identifier, g.window())
	if err != nil {
		slogx.FromContext(ctx).Error("lockout check failed open",
			"identifier", identifier, "error", err)
		return false
	}
	return n >= g.maxAttempts()
}
