package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"docfill/internal/model"
)

// RedisSessionStore keeps sessions as JSON blobs with a sliding TTL so several
// server processes can share them.
type RedisSessionStore struct {
	client    *redisv9.Client
	ttl       time.Duration
	keyPrefix string
}

func NewRedisSessionStore(client *redisv9.Client, ttl time.Duration, keyPrefix string) *RedisSessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if keyPrefix == "" {
		keyPrefix = "docfill:session:"
	}
	return &RedisSessionStore{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redisv9.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session failed: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal cached session failed: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, session *model.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session failed: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session failed: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) key(id string) string {
	return s.keyPrefix + id
}
