package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylistbot/stylist-bot/store"
	"github.com/stylistbot/stylist-bot/types"
)

func TestSweepOnceRefundsStaleOperations(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, ms.TopUp(ctx, 1, types.ServiceFlux, 10, time.Hour, now))
	ok, err := ms.TryConsume(ctx, 1, types.ServiceFlux, 1, now)
	require.NoError(t, err)
	require.True(t, ok)

	// Simulates a crash after consume: the record never resolves.
	require.NoError(t, ms.CreateConsumed(ctx, &types.PendingOperation{
		ID:        "op-stuck",
		UserID:    1,
		Service:   types.ServiceFlux,
		Amount:    1,
		CreatedAt: now.Add(-20 * time.Minute),
	}))

	s := NewSweeper(ms, ms, SweeperConfig{MaxOperationAge: 15 * time.Minute})

	n, err := s.SweepOnce(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	remaining, err := ms.Remaining(ctx, 1, types.ServiceFlux, now)
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)

	op, found := ms.Operation("op-stuck")
	require.True(t, found)
	assert.Equal(t, types.OpStatusRefunded, op.Status)

	// A second sweep finds nothing left to do.
	n, err = s.SweepOnce(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSweepOnceIgnoresFreshOperations(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, ms.CreateConsumed(ctx, &types.PendingOperation{
		ID:        "op-running",
		UserID:    1,
		Service:   types.ServiceKling,
		Amount:    1,
		CreatedAt: now.Add(-5 * time.Minute),
	}))

	s := NewSweeper(ms, ms, SweeperConfig{MaxOperationAge: 15 * time.Minute})

	n, err := s.SweepOnce(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	op, found := ms.Operation("op-running")
	require.True(t, found)
	assert.Equal(t, types.OpStatusConsumed, op.Status)
}

func TestSweeperStartStop(t *testing.T) {
	ms := store.NewMemoryStore()
	s := NewSweeper(ms, ms, SweeperConfig{Interval: 10 * time.Millisecond})

	s.Start()
	s.Start() // idempotent
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	s.Stop() // idempotent
}
