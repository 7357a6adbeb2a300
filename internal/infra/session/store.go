package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore はsidごとのセッションをRedisのハッシュに保存する。
// 触るたびにTTLを延長する。
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(sid string) string {
	return fmt.Sprintf("session:%s", sid)
}

func cartKey(sid string) string {
	return fmt.Sprintf("session:%s:cart", sid)
}

func (s *RedisStore) Get(ctx context.Context, sid string, key string) (string, error) {
	v, err := s.client.HGet(ctx, sessionKey(sid), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session get failed: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, sid string, key string, value string) error {
	k := sessionKey(sid)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, key, value)
		p.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Pop(ctx context.Context, sid string, key string) (string, error) {
	k := sessionKey(sid)
	var get *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		get = p.HGet(ctx, k, key)
		p.HDel(ctx, k, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("session pop failed: %w", err)
	}
	v, err := get.Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session pop failed: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Delete(ctx context.Context, sid string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, sessionKey(sid), keys...).Err(); err != nil {
		return fmt.Errorf("session delete failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Destroy(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, sessionKey(sid), cartKey(sid), cartOrderKey(sid)).Err(); err != nil {
		return fmt.Errorf("session destroy failed: %w", err)
	}
	return nil
}
