package store

import (
	"context"
	"fmt"
	"time"
)

// UserState is transient per-user chat state: language preference and the
// last uploaded photo waiting for a generation choice.
type UserState struct {
	Lang        string `json:"lang,omitempty"`
	PhotoFileID string `json:"photo_file_id,omitempty"`
}

type RedisUserStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisUserStore(redisClient *RedisClient, ttlHours int) *RedisUserStore {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttlHours <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisUserStore{
		client: redisClient,
		ttl:    ttl,
	}
}

func (s *RedisUserStore) GetUserState(ctx context.Context, userID int64) (UserState, error) {
	key := s.client.generateKey("user_state", fmt.Sprintf("%d", userID))
	var state UserState
	if err := s.client.Get(ctx, key, &state); err != nil {
		return UserState{}, nil
	}
	return state, nil
}

func (s *RedisUserStore) SetUserState(ctx context.Context, userID int64, state UserState) error {
	key := s.client.generateKey("user_state", fmt.Sprintf("%d", userID))
	return s.client.Set(ctx, key, state, s.ttl)
}
