package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/haulage/pkg/slogx"
)

func TestHousekeepingRunOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.svc.Guard.RecordAttempt(ctx, "old@x.com", "", false)
	require.NoError(t, h.client.Blacklist(ctx, "tok", time.Minute))

	h.clock.Advance(25 * time.Hour)
	h.svc.Guard.RecordAttempt(ctx, "new@x.com", "", false)

	hk := NewHousekeepingService(h.store, h.client, slogx.Discard(), time.Minute)
	hk.Clock = h.clock
	hk.Sweeper = h.backend
	hk.RunOnce(ctx)

	n, err := h.store.LoginAttempts().CountFailuresSince(ctx, "old@x.com", time.Time{})
	require.NoError(t, err)
	require.Zero(t, n, "attempts past retention are pruned")

	n, err = h.store.LoginAttempts().CountFailuresSince(ctx, "new@x.com", time.Time{})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.Zero(t, h.backend.Len(), "expired revocation entries are swept")
}

func TestHousekeepingStartStop(t *testing.T) {
	h := newHarness(t)
	hk := NewHousekeepingService(h.store, h.client, slogx.Discard(), time.Hour)
	hk.Start()
	hk.Stop()
}
