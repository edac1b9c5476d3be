package store

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/stylistbot/stylist-bot/types"
)

// RedisPassStore keeps the active pass per user. Activation rewrites the
// pass record and every quota counter in a single Lua script so a crash
// can never leave a pass without its counters.
type RedisPassStore struct {
	client *RedisClient
}

func NewRedisPassStore(redisClient *RedisClient) *RedisPassStore {
	return &RedisPassStore{client: redisClient}
}

var _ types.PassStore = (*RedisPassStore)(nil)

// KEYS[1]   = pass hash key
// KEYS[2..] = quota counter keys, one per service
// ARGV[1]   = tier id
// ARGV[2]   = activated_at (unix seconds)
// ARGV[3]   = expires_at (unix seconds)
// ARGV[4]   = ttl seconds
// ARGV[5..] = service, amount pairs matching KEYS[2..]
var activatePassScript = redis.NewScript(`
local pass_key = KEYS[1]
local ttl = tonumber(ARGV[4])

redis.call("DEL", pass_key)
redis.call("HSET", pass_key,
    "tier_id", ARGV[1],
    "activated_at", ARGV[2],
    "expires_at", ARGV[3])

local i = 5
for k = 2, #KEYS do
    redis.call("HSET", pass_key, ARGV[i] .. "_quota", ARGV[i+1])
    redis.call("SET", KEYS[k], ARGV[i+1], "EX", ttl)
    i = i + 2
end

redis.call("EXPIRE", pass_key, ttl)
return 1
`)

func (s *RedisPassStore) passKey(userID int64) string {
	return s.client.generateKey("pass", fmt.Sprintf("%d", userID))
}

func (s *RedisPassStore) quotaKey(userID int64, service types.Service) string {
	return s.client.generateKey("quota", fmt.Sprintf("%d", userID), string(service))
}

func (s *RedisPassStore) ActivatePass(ctx context.Context, userID int64, tier types.Tier, now time.Time) (*types.Pass, error) {
	expiresAt := now.Add(tier.Duration)
	ttl := int64(tier.Duration / time.Second)
	if ttl <= 0 {
		return nil, fmt.Errorf("pass store: non-positive duration for tier %s", tier.ID)
	}

	keys := []string{s.passKey(userID)}
	args := []interface{}{tier.ID, now.Unix(), expiresAt.Unix(), ttl}
	for _, svc := range types.Services {
		keys = append(keys, s.quotaKey(userID, svc))
		args = append(args, string(svc), tier.Quota[svc])
	}

	if _, err := s.client.runScript(ctx, activatePassScript, keys, args...); err != nil {
		return nil, fmt.Errorf("pass store: activate %s for user %d: %w", tier.ID, userID, err)
	}

	quota := make(map[types.Service]int, len(tier.Quota))
	for svc, n := range tier.Quota {
		quota[svc] = n
	}
	return &types.Pass{
		TierID:      tier.ID,
		ActivatedAt: now,
		ExpiresAt:   expiresAt,
		Quota:       quota,
	}, nil
}

func (s *RedisPassStore) GetActivePass(ctx context.Context, userID int64, now time.Time) (*types.Pass, error) {
	key := s.passKey(userID)
	data, err := s.client.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("pass store: get pass for user %d: %w", userID, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	pass, err := parsePassHash(data)
	if err != nil {
		return nil, fmt.Errorf("pass store: corrupt pass record for user %d: %w", userID, err)
	}

	// Redis expires the key on its own; the check below only covers the
	// window between logical and native expiry.
	if !pass.Active(now) {
		if err := s.client.Del(ctx, key); err != nil {
			log.Printf("Pass store: failed to clean up expired pass for user %d: %v", userID, err)
		}
		return nil, nil
	}
	return pass, nil
}

func parsePassHash(data map[string]string) (*types.Pass, error) {
	activated, err := strconv.ParseInt(data["activated_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad activated_at %q", data["activated_at"])
	}
	expires, err := strconv.ParseInt(data["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad expires_at %q", data["expires_at"])
	}

	quota := make(map[types.Service]int)
	for field, value := range data {
		name, ok := strings.CutSuffix(field, "_quota")
		if !ok {
			continue
		}
		svc, ok := types.ParseService(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("bad %s %q", field, value)
		}
		quota[svc] = n
	}

	return &types.Pass{
		TierID:      data["tier_id"],
		ActivatedAt: time.Unix(activated, 0).UTC(),
		ExpiresAt:   time.Unix(expires, 0).UTC(),
		Quota:       quota,
	}, nil
}
