package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps transient admin flow state (broadcast composer, settings
// editor) in Redis so a process restart does not lose in-flight progress.
// User-facing flow state lives on the durable user record instead.
type Store interface {
	Get(ctx context.Context, userID int64, dest any) (bool, error)
	Set(ctx context.Context, userID int64, value any) error
	Delete(ctx context.Context, userID int64) error
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func key(userID int64) string {
	return fmt.Sprintf("session:%d", userID)
}

func (s *redisStore) Get(ctx context.Context, userID int64, dest any) (bool, error) {
	raw, err := s.client.Get(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session get %d: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("session decode %d: %w", userID, err)
	}
	return true, nil
}

func (s *redisStore) Set(ctx context.Context, userID int64, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("session encode %d: %w", userID, err)
	}
	if err := s.client.Set(ctx, key(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("session set %d: %w", userID, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("session delete %d: %w", userID, err)
	}
	return nil
}
