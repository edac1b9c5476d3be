//go:build integration

package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylistbot/stylist-bot/types"
)

func newTestRedisClient(t *testing.T) *RedisClient {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	// Unique prefix per test to avoid collisions.
	client, err := NewRedisClient(addr, os.Getenv("REDIS_PASSWORD"), 0, "test_"+t.Name())
	if err != nil {
		t.Fatalf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := client.Keys(ctx, client.generateKey("*"))
		for _, key := range keys {
			_ = client.Del(ctx, key)
		}
		client.Close()
	})
	return client
}

func redisTestTier() types.Tier {
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

func TestRedisActivatePassAndCounters(t *testing.T) {
	client := newTestRedisClient(t)
	passes := NewRedisPassStore(client)
	quota := NewRedisQuotaStore(client)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	// Leftover pay-as-you-go credit must be overwritten by activation.
	require.NoError(t, quota.TopUp(ctx, 1, types.ServiceFlux, 7, time.Hour, now))

	pass, err := passes.ActivatePass(ctx, 1, redisTestTier(), now)
	require.NoError(t, err)
	assert.Equal(t, "pro_1day", pass.TierID)

	got, err := passes.GetActivePass(ctx, 1, now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, pass.ExpiresAt.Unix(), got.ExpiresAt.Unix())
	assert.Equal(t, 50, got.Quota[types.ServiceFlux])
	assert.Equal(t, 10, got.Quota[types.ServiceKling])

	flux, err := quota.Remaining(ctx, 1, types.ServiceFlux, now)
	require.NoError(t, err)
	assert.Equal(t, 50, flux)

	// Logical expiry wins over the pending native TTL.
	got, err = passes.GetActivePass(ctx, 1, now.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisTryConsumeFloor(t *testing.T) {
	client := newTestRedisClient(t)
	quota := NewRedisQuotaStore(client)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, quota.TopUp(ctx, 1, types.ServiceKling, 1, time.Hour, now))

	ok, err := quota.TryConsume(ctx, 1, types.ServiceKling, 1, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = quota.TryConsume(ctx, 1, types.ServiceKling, 1, now)
	require.NoError(t, err)
	assert.False(t, ok)

	// Missing counter behaves like an exhausted one.
	ok, err = quota.TryConsume(ctx, 2, types.ServiceKling, 1, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisConcurrentConsumeNoOverspend(t *testing.T) {
	client := newTestRedisClient(t)
	quota := NewRedisQuotaStore(client)
	ctx := context.Background()
	now := time.Now().UTC()

	const limit = 10
	require.NoError(t, quota.TopUp(ctx, 1, types.ServiceFlux, limit, time.Hour, now))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := quota.TryConsume(ctx, 1, types.ServiceFlux, 1, now)
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

	assert.Equal(t, limit, succeeded)
}

func TestRedisRefundCappedByPass(t *testing.T) {
	client := newTestRedisClient(t)
	passes := NewRedisPassStore(client)
	quota := NewRedisQuotaStore(client)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := passes.ActivatePass(ctx, 1, redisTestTier(), now)
	require.NoError(t, err)

	ok, err := quota.TryConsume(ctx, 1, types.ServiceKling, 1, now)
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		applied, err := quota.Refund(ctx, 1, types.ServiceKling, 1, now)
		require.NoError(t, err)
		assert.True(t, applied)
	}

	remaining, err := quota.Remaining(ctx, 1, types.ServiceKling, now)
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)
}

func TestRedisRefundDroppedWithoutCounter(t *testing.T) {
	client := newTestRedisClient(t)
	quota := NewRedisQuotaStore(client)
	ctx := context.Background()

	applied, err := quota.Refund(ctx, 1, types.ServiceFlux, 1, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestRedisTopUpKeepsWindow(t *testing.T) {
	client := newTestRedisClient(t)
	quota := NewRedisQuotaStore(client)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, quota.TopUp(ctx, 1, types.ServiceFlux, 1, time.Hour, now))
	require.NoError(t, quota.TopUp(ctx, 1, types.ServiceFlux, 1, 48*time.Hour, now))

	quotaKey := client.generateKey("quota", "1", string(types.ServiceFlux))
	ttl, err := client.TTL(ctx, quotaKey)
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Hour, "second top-up must not extend the window")

	remaining, err := quota.Remaining(ctx, 1, types.ServiceFlux, now)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestRedisPendingCASExactlyOnce(t *testing.T) {
	client := newTestRedisClient(t)
	pending := NewRedisPendingStore(client, 24)
	ctx := context.Background()
	now := time.Now().UTC()

	op := &types.PendingOperation{
		ID:        "op-1",
		UserID:    1,
		Service:   types.ServiceFlux,
		Amount:    1,
		CreatedAt: now,
	}
	require.NoError(t, pending.CreateConsumed(ctx, op))
	assert.ErrorIs(t, pending.CreateConsumed(ctx, op), ErrDuplicateOperation)

	won, err := pending.MarkRefunded(ctx, "op-1")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = pending.MarkCompleted(ctx, "op-1")
	require.NoError(t, err)
	assert.False(t, won)

	// Unknown records never win a transition.
	won, err = pending.MarkCompleted(ctx, "op-unknown")
	require.NoError(t, err)
	assert.False(t, won)
}

func TestRedisListStaleConsumed(t *testing.T) {
	client := newTestRedisClient(t)
	pending := NewRedisPendingStore(client, 24)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, pending.CreateConsumed(ctx, &types.PendingOperation{
		ID: "op-old", UserID: 1, Service: types.ServiceKling, Amount: 1, CreatedAt: now.Add(-30 * time.Minute),
	}))
	require.NoError(t, pending.CreateConsumed(ctx, &types.PendingOperation{
		ID: "op-new", UserID: 1, Service: types.ServiceKling, Amount: 1, CreatedAt: now,
	}))

	stale, err := pending.ListStaleConsumed(ctx, now.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "op-old", stale[0].ID)
	assert.Equal(t, types.ServiceKling, stale[0].Service)
	assert.Equal(t, int64(1), stale[0].UserID)
}
