package repository

import (
	"context"
	"errors"
	"time"

	"grammar-api-app/internal/modules/correction/domain"
)

// ErrCacheMiss キーが存在しない
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository キャッシュリポジトリのインターフェース
type CacheRepository interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	// Get キーが無い場合はErrCacheMissを返す
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// RuleRepository 追加ルールのリポジトリのインターフェース
type RuleRepository interface {
	EnsureSchema(ctx context.Context) error
	Create(ctx context.Context, rule domain.CustomRule) error
	// Disable 無効化した件数を返す
	Disable(ctx context.Context, pattern string) (int64, error)
	// FindEnabled 有効なルールを登録順に返す
	FindEnabled(ctx context.Context) ([]domain.CustomRule, error)
	Close() error
}
