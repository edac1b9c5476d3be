package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stylistbot/stylist-bot/types"
)

// MemoryStore is an in-process implementation of the pass, quota and
// pending-operation stores with the same semantics as the Redis-backed
// ones. It backs unit tests and store-less local runs; it is not safe
// across processes.
type MemoryStore struct {
	mu       sync.Mutex
	passes   map[int64]*types.Pass
	counters map[string]*memCounter
	ops      map[string]*types.PendingOperation
}

type memCounter struct {
	remaining int
	expiresAt time.Time
}

var (
	_ types.PassStore      = (*MemoryStore)(nil)
	_ types.QuotaStore     = (*MemoryStore)(nil)
	_ types.PendingOpStore = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		passes:   make(map[int64]*types.Pass),
		counters: make(map[string]*memCounter),
		ops:      make(map[string]*types.PendingOperation),
	}
}

func counterKey(userID int64, service types.Service) string {
	return fmt.Sprintf("%d:%s", userID, service)
}

func (s *MemoryStore) ActivatePass(_ context.Context, userID int64, tier types.Tier, now time.Time) (*types.Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := now.Add(tier.Duration)
	quota := make(map[types.Service]int, len(tier.Quota))
	for svc, n := range tier.Quota {
		quota[svc] = n
	}
	pass := &types.Pass{
		TierID:      tier.ID,
		ActivatedAt: now,
		ExpiresAt:   expiresAt,
		Quota:       quota,
	}
	s.passes[userID] = pass

	for _, svc := range types.Services {
		s.counters[counterKey(userID, svc)] = &memCounter{
			remaining: tier.Quota[svc],
			expiresAt: expiresAt,
		}
	}
	return pass, nil
}

func (s *MemoryStore) GetActivePass(_ context.Context, userID int64, now time.Time) (*types.Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pass := s.passes[userID]
	if !pass.Active(now) {
		delete(s.passes, userID)
		return nil, nil
	}
	return pass, nil
}

// counter returns the live counter, discarding an expired one.
func (s *MemoryStore) counter(userID int64, service types.Service, now time.Time) *memCounter {
	key := counterKey(userID, service)
	c := s.counters[key]
	if c == nil {
		return nil
	}
	if !now.Before(c.expiresAt) {
		delete(s.counters, key)
		return nil
	}
	return c
}

func (s *MemoryStore) TopUp(_ context.Context, userID int64, service types.Service, amount int, ttl time.Duration, now time.Time) error {
	if amount <= 0 {
		return fmt.Errorf("memory store: non-positive top-up amount %d", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.counter(userID, service, now); c != nil {
		c.remaining += amount
		return nil
	}
	s.counters[counterKey(userID, service)] = &memCounter{
		remaining: amount,
		expiresAt: now.Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Remaining(_ context.Context, userID int64, service types.Service, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.counter(userID, service, now)
	if c == nil || c.remaining < 0 {
		return 0, nil
	}
	return c.remaining, nil
}

func (s *MemoryStore) TryConsume(_ context.Context, userID int64, service types.Service, amount int, now time.Time) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("memory store: non-positive consume amount %d", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.counter(userID, service, now)
	if c == nil || c.remaining < amount {
		return false, nil
	}
	c.remaining -= amount
	return true, nil
}

func (s *MemoryStore) Refund(_ context.Context, userID int64, service types.Service, amount int, now time.Time) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("memory store: non-positive refund amount %d", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.counter(userID, service, now)
	if c == nil {
		return false, nil
	}

	target := c.remaining + amount
	if pass := s.passes[userID]; pass.Active(now) {
		if cap, ok := pass.Quota[service]; ok && target > cap {
			target = cap
		}
	}
	c.remaining = target
	return true, nil
}

func (s *MemoryStore) CreateConsumed(_ context.Context, op *types.PendingOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ops[op.ID]; exists {
		return fmt.Errorf("memory store: create %s: %w", op.ID, ErrDuplicateOperation)
	}
	op.Status = types.OpStatusConsumed
	clone := *op
	s.ops[op.ID] = &clone
	return nil
}

func (s *MemoryStore) MarkCompleted(_ context.Context, opID string) (bool, error) {
	return s.casStatus(opID, types.OpStatusCompleted), nil
}

func (s *MemoryStore) MarkRefunded(_ context.Context, opID string) (bool, error) {
	return s.casStatus(opID, types.OpStatusRefunded), nil
}

func (s *MemoryStore) casStatus(opID string, to types.OpStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := s.ops[opID]
	if op == nil || op.Status != types.OpStatusConsumed {
		return false
	}
	op.Status = to
	return true
}

func (s *MemoryStore) ListStaleConsumed(_ context.Context, cutoff time.Time) ([]*types.PendingOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*types.PendingOperation
	for _, op := range s.ops {
		if op.Status == types.OpStatusConsumed && op.CreatedAt.Before(cutoff) {
			clone := *op
			stale = append(stale, &clone)
		}
	}
	return stale, nil
}

// Operation exposes a pending record for tests and the sweeper's log line.
func (s *MemoryStore) Operation(opID string) (types.PendingOperation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := s.ops[opID]
	if op == nil {
		return types.PendingOperation{}, false
	}
	return *op, true
}
