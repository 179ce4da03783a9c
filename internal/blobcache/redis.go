package blobcache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisStore keeps entries as plain string values under prefix:namespace:key.
// Entries never expire.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "redis: ping %s", addr)
	}
	return NewRedisWithClient(client, prefix), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) redisKey(ns Namespace, key string) string {
	if s.prefix == "" {
		return string(ns) + ":" + key
	}
	return s.prefix + ":" + string(ns) + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	payload, err := s.client.Get(ctx, s.redisKey(ns, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get %s/%s", ns, key)
	}
	return payload, nil
}

func (s *RedisStore) Put(ctx context.Context, ns Namespace, key string, payload []byte) error {
	err := s.client.SetNX(ctx, s.redisKey(ns, key), payload, 0).Err()
	return eris.Wrapf(err, "redis: put %s/%s", ns, key)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
