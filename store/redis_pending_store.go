package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/stylistbot/stylist-bot/types"
)

var ErrDuplicateOperation = errors.New("duplicate operation id")

// RedisPendingStore tracks in-flight billable operations. Records live
// only for the duration of one generation plus the sweep horizon; the
// TTL is the backstop for records whose owner died mid-transition.
type RedisPendingStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisPendingStore(redisClient *RedisClient, ttlHours int) *RedisPendingStore {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttlHours <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisPendingStore{
		client: redisClient,
		ttl:    ttl,
	}
}

var _ types.PendingOpStore = (*RedisPendingStore)(nil)

var createConsumedScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
    return 0
end
redis.call("HSET", KEYS[1],
    "user_id", ARGV[1],
    "service", ARGV[2],
    "amount", ARGV[3],
    "status", ARGV[4],
    "created_at", ARGV[5])
redis.call("EXPIRE", KEYS[1], tonumber(ARGV[6]))
return 1
`)

// Compare-and-swap on the status field: only the first caller moves the
// record out of "consumed".
var casStatusScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "status") ~= ARGV[1] then
    return 0
end
redis.call("HSET", KEYS[1], "status", ARGV[2])
return 1
`)

func (s *RedisPendingStore) opKey(opID string) string {
	return s.client.generateKey("op", opID)
}

func (s *RedisPendingStore) CreateConsumed(ctx context.Context, op *types.PendingOperation) error {
	op.Status = types.OpStatusConsumed
	result, err := s.client.runScript(ctx, createConsumedScript,
		[]string{s.opKey(op.ID)},
		op.UserID, string(op.Service), op.Amount, string(op.Status), op.CreatedAt.Unix(), int64(s.ttl/time.Second),
	)
	if err != nil {
		return fmt.Errorf("pending store: create %s: %w", op.ID, err)
	}
	if result.(int64) == 0 {
		return fmt.Errorf("pending store: create %s: %w", op.ID, ErrDuplicateOperation)
	}
	return nil
}

func (s *RedisPendingStore) MarkCompleted(ctx context.Context, opID string) (bool, error) {
	return s.casStatus(ctx, opID, types.OpStatusCompleted)
}

func (s *RedisPendingStore) MarkRefunded(ctx context.Context, opID string) (bool, error) {
	return s.casStatus(ctx, opID, types.OpStatusRefunded)
}

func (s *RedisPendingStore) casStatus(ctx context.Context, opID string, to types.OpStatus) (bool, error) {
	result, err := s.client.runScript(ctx, casStatusScript,
		[]string{s.opKey(opID)},
		string(types.OpStatusConsumed), string(to),
	)
	if err != nil {
		return false, fmt.Errorf("pending store: mark %s %s: %w", opID, to, err)
	}
	return result.(int64) == 1, nil
}

func (s *RedisPendingStore) ListStaleConsumed(ctx context.Context, cutoff time.Time) ([]*types.PendingOperation, error) {
	pattern := s.client.generateKey("op", "*")
	keys, err := s.client.Keys(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("pending store: list: %w", err)
	}

	prefixLen := len(s.opKey(""))
	var stale []*types.PendingOperation
	for _, key := range keys {
		data, err := s.client.HGetAll(ctx, key)
		if err != nil || len(data) == 0 {
			continue
		}
		op, err := parsePendingHash(key[prefixLen:], data)
		if err != nil {
			continue
		}
		if op.Status == types.OpStatusConsumed && op.CreatedAt.Before(cutoff) {
			stale = append(stale, op)
		}
	}

	return stale, nil
}

func parsePendingHash(opID string, data map[string]string) (*types.PendingOperation, error) {
	userID, err := strconv.ParseInt(data["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad user_id %q", data["user_id"])
	}
	amount, err := strconv.Atoi(data["amount"])
	if err != nil {
		return nil, fmt.Errorf("bad amount %q", data["amount"])
	}
	createdAt, err := strconv.ParseInt(data["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q", data["created_at"])
	}
	svc, ok := types.ParseService(data["service"])
	if !ok {
		return nil, fmt.Errorf("bad service %q", data["service"])
	}

	return &types.PendingOperation{
		ID:        opID,
		UserID:    userID,
		Service:   svc,
		Amount:    amount,
		Status:    types.OpStatus(data["status"]),
		CreatedAt: time.Unix(createdAt, 0).UTC(),
	}, nil
}
