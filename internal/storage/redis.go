package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "intercom:"
)

// Redis は値を Redis に保存するストレージです。TTL は付けません。
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis は Redis ストレージを作成します。
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{
		rdb:    rdb,
		prefix: prefix,
	}
}

// GetItem は値を取得します。
func (r *Redis) GetItem(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	value, err := r.rdb.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// SetItem は値を保存します。
func (r *Redis) SetItem(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return r.rdb.Set(ctx, r.key(key), value, 0).Err()
}

// RemoveItem は値を削除します。
func (r *Redis) RemoveItem(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return r.rdb.Del(ctx, r.key(key)).Err()
}

// Close は Redis クライアントを閉じます。
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) key(key string) string {
	return r.prefix + key
}
