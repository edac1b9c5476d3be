package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/stylistbot/stylist-bot/types"
)

// RedisQuotaStore holds per-(user, service) quota counters. Counters
// expire natively with the owning pass or the pay-as-you-go window, so
// every script treats a missing key as exhausted-or-expired.
type RedisQuotaStore struct {
	client *RedisClient
}

func NewRedisQuotaStore(redisClient *RedisClient) *RedisQuotaStore {
	return &RedisQuotaStore{client: redisClient}
}

var _ types.QuotaStore = (*RedisQuotaStore)(nil)

// Atomic floor-checked decrement. Returns the new remaining, or -1 when
// the counter is missing or below the requested amount. DECRBY keeps the
// key's TTL, so consumption never extends a window.
var tryConsumeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
    return -1
end
local cur = tonumber(v)
local amount = tonumber(ARGV[1])
if cur < amount then
    return -1
end
return redis.call("DECRBY", KEYS[1], amount)
`)

// KEYS[1] = quota counter, KEYS[2] = pass hash
// ARGV[1] = amount, ARGV[2] = pass hash field holding the included quota
// A missing counter means the window closed: the refund is dropped (-1).
// While a pass is active the balance is capped at the purchased allotment.
var refundScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
    return -1
end
local cur = tonumber(v)
local target = cur + tonumber(ARGV[1])
local cap = redis.call("HGET", KEYS[2], ARGV[2])
if cap then
    cap = tonumber(cap)
    if target > cap then
        target = cap
    end
end
if target > cur then
    redis.call("INCRBY", KEYS[1], target - cur)
end
return target
`)

// INCRBY on an existing counter keeps its expiry; only a fresh counter
// gets the pay-as-you-go TTL.
var topUpScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
    return redis.call("INCRBY", KEYS[1], ARGV[1])
end
redis.call("SET", KEYS[1], ARGV[1], "EX", tonumber(ARGV[2]))
return tonumber(ARGV[1])
`)

func (s *RedisQuotaStore) quotaKey(userID int64, service types.Service) string {
	return s.client.generateKey("quota", fmt.Sprintf("%d", userID), string(service))
}

func (s *RedisQuotaStore) passKey(userID int64) string {
	return s.client.generateKey("pass", fmt.Sprintf("%d", userID))
}

func (s *RedisQuotaStore) TopUp(ctx context.Context, userID int64, service types.Service, amount int, ttl time.Duration, now time.Time) error {
	if amount <= 0 {
		return fmt.Errorf("quota store: non-positive top-up amount %d", amount)
	}
	_, err := s.client.runScript(ctx, topUpScript,
		[]string{s.quotaKey(userID, service)},
		amount, int64(ttl/time.Second),
	)
	if err != nil {
		return fmt.Errorf("quota store: top up %s for user %d: %w", service, userID, err)
	}
	return nil
}

func (s *RedisQuotaStore) Remaining(ctx context.Context, userID int64, service types.Service, now time.Time) (int, error) {
	var remaining int
	err := s.client.Get(ctx, s.quotaKey(userID, service), &remaining)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("quota store: remaining %s for user %d: %w", service, userID, err)
	}
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

func (s *RedisQuotaStore) TryConsume(ctx context.Context, userID int64, service types.Service, amount int, now time.Time) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("quota store: non-positive consume amount %d", amount)
	}
	result, err := s.client.runScript(ctx, tryConsumeScript,
		[]string{s.quotaKey(userID, service)},
		amount,
	)
	if err != nil {
		return false, fmt.Errorf("quota store: consume %s for user %d: %w", service, userID, err)
	}
	return result.(int64) >= 0, nil
}

func (s *RedisQuotaStore) Refund(ctx context.Context, userID int64, service types.Service, amount int, now time.Time) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("quota store: non-positive refund amount %d", amount)
	}
	result, err := s.client.runScript(ctx, refundScript,
		[]string{s.quotaKey(userID, service), s.passKey(userID)},
		amount, string(service)+"_quota",
	)
	if err != nil {
		return false, fmt.Errorf("quota store: refund %s for user %d: %w", service, userID, err)
	}
	return result.(int64) >= 0, nil
}
