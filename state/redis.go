package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps pool state under a namespace in a redis database.
type RedisBackend struct {
	client    redis.UniversalClient
	namespace string
	owned     bool
}

// RedisConfig describes a standalone redis connection.
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	Namespace string
}

// OpenRedis dials redis and pings once so bad addresses fail early.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Address, err)
	}
	b := NewRedisBackend(client, cfg.Namespace)
	b.owned = true
	return b, nil
}

// NewRedisBackend wraps an existing client. The client is not closed by Close.
func NewRedisBackend(client redis.UniversalClient, namespace string) *RedisBackend {
	if namespace == "" {
		namespace = "presale"
	}
	return &RedisBackend{client: client, namespace: namespace}
}

// key prefixes the namespace; binary pool keys are fine since redis keys are binary safe.
func (r *RedisBackend) key(k string) string {
	return r.namespace + ":" + k
}

// Get maps redis.Nil onto ErrNotFound.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

// Apply runs the ops inside MULTI/EXEC.
func (r *RedisBackend) Apply(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			if op.Delete {
				pipe.Del(ctx, r.key(op.Key))
				continue
			}
			pipe.Set(ctx, r.key(op.Key), op.Value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis apply: %w", err)
	}
	return nil
}

// Close only closes clients opened by OpenRedis.
func (r *RedisBackend) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}
