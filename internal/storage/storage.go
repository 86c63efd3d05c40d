// Package storage はセッション永続化のためのキー・バリューストレージ抽象化レイヤーを提供します。
//
// ブラウザの localStorage と同じく文字列キーに文字列値を保存する単純なモデルで、
// 書き込みは常に後勝ちです。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/hasura-intercom/internal/config"
)

// ErrEmptyKey はキーが空のときに返されます。
var ErrEmptyKey = errors.New("storage: key is required")

// Storage は永続化ストレージが実装するインターフェースです。
type Storage interface {
	// GetItem は値を取得します。キーが存在しない場合は ok=false を返します。
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Open は設定に応じたストレージを作成します。
func Open(ctx context.Context, cfg *config.Config) (Storage, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	switch cfg.StorageBackend {
	case config.StorageFile:
		return NewLocal(cfg.StoragePath)
	case config.StorageMemory:
		return NewMemory(), nil
	case config.StorageRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		return NewRedis(rdb, defaultRedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

// Close はストレージが接続などの資源を持つ場合に解放します。
// io.Closer を実装しないストレージでは何もしません。
func Close(s Storage) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
