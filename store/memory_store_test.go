package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylistbot/stylist-bot/types"
)

func testTier() types.Tier {
	return types.Tier{
		ID:         "pro_1day",
		Name:       "1-Day Pro Pass",
		PriceStars: 499,
		Duration:   24 * time.Hour,
		Quota: map[types.Service]int{
			types.ServiceFlux:  50,
			types.ServiceKling: 10,
		},
	}
}

func TestActivatePassResetsCounters(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Leftover pay-as-you-go credits must not survive a pass purchase.
	require.NoError(t, ms.TopUp(ctx, 1, types.ServiceFlux, 7, 30*24*time.Hour, now))

	pass, err := ms.ActivatePass(ctx, 1, testTier(), now)
	require.NoError(t, err)
	require.NotNil(t, pass)
	assert.Equal(t, "pro_1day", pass.TierID)
	assert.Equal(t, now.Add(24*time.Hour), pass.ExpiresAt)

	flux, err := ms.Remaining(ctx, 1, types.ServiceFlux, now)
	require.NoError(t, err)
	assert.Equal(t, 50, flux)

	kling, err := ms.Remaining(ctx, 1, types.ServiceKling, now)
	require.NoError(t, err)
	assert.Equal(t, 10, kling)
}

func TestGetActivePassExpiry(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := ms.ActivatePass(ctx, 1, testTier(), now)
	require.NoError(t, err)

	pass, err := ms.GetActivePass(ctx, 1, now.Add(23*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, pass)

	pass, err = ms.GetActivePass(ctx, 1, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, pass)

	// Counters die with the pass.
	flux, err := ms.Remaining(ctx, 1, types.ServiceFlux, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, flux)
}

func TestTryConsumeFloor(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, ms.TopUp(ctx, 1, types.ServiceKling, 2, time.Hour, now))

	ok, err := ms.TryConsume(ctx, 1, types.ServiceKling, 1, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ms.TryConsume(ctx, 1, types.ServiceKling, 1, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ms.TryConsume(ctx, 1, types.ServiceKling, 1, now)
	require.NoError(t, err)
	assert.False(t, ok, "consume below zero must be refused")

	remaining, err := ms.Remaining(ctx, 1, types.ServiceKling, now)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestTryConsumeConcurrentNoOverspend(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	const quota = 50
	const attempts = 200

	require.NoError(t, ms.TopUp(ctx, 1, types.ServiceFlux, quota, time.Hour, now))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ms.TryConsume(ctx, 1, types.ServiceFlux, 1, now)
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, quota, succeeded)

	remaining, err := ms.Remaining(ctx, 1, types.ServiceFlux, now)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestTopUpKeepsExistingWindow(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ttl := 30 * 24 * time.Hour

	require.NoError(t, ms.TopUp(ctx, 1, types.ServiceFlux, 1, ttl, now))
	require.NoError(t, ms.TopUp(ctx, 1, types.ServiceFlux, 1, ttl, now.Add(10*24*time.Hour)))

	// The second top-up lands in the window opened by the first.
	remaining, err := ms.Remaining(ctx, 1, types.ServiceFlux, now.Add(29*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	remaining, err = ms.Remaining(ctx, 1, types.ServiceFlux, now.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestRefundCappedAtPassQuota(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := ms.ActivatePass(ctx, 1, testTier(), now)
	require.NoError(t, err)

	ok, err := ms.TryConsume(ctx, 1, types.ServiceKling, 1, now)
	require.NoError(t, err)
	require.True(t, ok)

	// Duplicate refunds must never mint quota above the tier's grant.
	applied, err := ms.Refund(ctx, 1, types.ServiceKling, 1, now)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = ms.Refund(ctx, 1, types.ServiceKling, 1, now)
	require.NoError(t, err)
	assert.True(t, applied)

	remaining, err := ms.Remaining(ctx, 1, types.ServiceKling, now)
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)
}

func TestRefundWithoutPassIsUncapped(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, ms.TopUp(ctx, 1, types.ServiceFlux, 2, time.Hour, now))

	applied, err := ms.Refund(ctx, 1, types.ServiceFlux, 5, now)
	require.NoError(t, err)
	assert.True(t, applied)

	remaining, err := ms.Remaining(ctx, 1, types.ServiceFlux, now)
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)
}

func TestRefundDroppedWhenCounterGone(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, ms.TopUp(ctx, 1, types.ServiceFlux, 1, time.Hour, now))

	applied, err := ms.Refund(ctx, 1, types.ServiceFlux, 1, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, applied, "refund against an expired counter must be dropped")

	applied, err = ms.Refund(ctx, 2, types.ServiceFlux, 1, now)
	require.NoError(t, err)
	assert.False(t, applied, "refund against a missing counter must be dropped")
}

func TestPendingOperationLifecycle(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	op := &types.PendingOperation{
		ID:        "op-1",
		UserID:    1,
		Service:   types.ServiceFlux,
		Amount:    1,
		CreatedAt: now,
	}
	require.NoError(t, ms.CreateConsumed(ctx, op))
	assert.ErrorIs(t, ms.CreateConsumed(ctx, op), ErrDuplicateOperation)

	won, err := ms.MarkCompleted(ctx, "op-1")
	require.NoError(t, err)
	assert.True(t, won)

	// The status transition happens exactly once.
	won, err = ms.MarkRefunded(ctx, "op-1")
	require.NoError(t, err)
	assert.False(t, won)

	stored, ok := ms.Operation("op-1")
	require.True(t, ok)
	assert.Equal(t, types.OpStatusCompleted, stored.Status)
}

func TestListStaleConsumed(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, ms.CreateConsumed(ctx, &types.PendingOperation{
		ID: "old", UserID: 1, Service: types.ServiceFlux, Amount: 1, CreatedAt: now.Add(-20 * time.Minute),
	}))
	require.NoError(t, ms.CreateConsumed(ctx, &types.PendingOperation{
		ID: "fresh", UserID: 1, Service: types.ServiceFlux, Amount: 1, CreatedAt: now.Add(-time.Minute),
	}))
	require.NoError(t, ms.CreateConsumed(ctx, &types.PendingOperation{
		ID: "done", UserID: 1, Service: types.ServiceFlux, Amount: 1, CreatedAt: now.Add(-20 * time.Minute),
	}))
	_, err := ms.MarkCompleted(ctx, "done")
	require.NoError(t, err)

	stale, err := ms.ListStaleConsumed(ctx, now.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)
}
