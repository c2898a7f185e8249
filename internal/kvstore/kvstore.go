// Package kvstore provides the credential-binding lookup used by the
// authenticating proxy: opaque ID -> bearer token, backed by Redis.
package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Store is the minimal get/put interface the proxy needs. The underlying
// store is treated as external infrastructure: a miss is a clean "not
// found", distinct from connectivity errors.
type Store interface {
	// Get returns the bearer token bound to id. ok is false (err nil) when
	// the ID is unknown or expired; err is non-nil only for store failures.
	Get(ctx context.Context, id string) (token string, ok bool, err error)

	// Put binds id to token for ttl. Used by tests and by whatever external
	// process issues opaque IDs ahead of a proxied call.
	Put(ctx context.Context, id, token string, ttl time.Duration) error

	// Close releases the underlying connection.
	Close() error
}

// RedisStore implements Store on top of go-redis v9.
type RedisStore struct {
	rdb *redis.Client
}

// RedisOptions configures the connection.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies connectivity with a ping.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     20,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed (%s): %w", opts.Addr, err)
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("kv store connected")
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, id).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv store get: %w", err)
	}
	return val, true, nil
}

func (s *RedisStore) Put(ctx context.Context, id, token string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, id, token, ttl).Err(); err != nil {
		return fmt.Errorf("kv store put: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
