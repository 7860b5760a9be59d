package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"grammar-api-app/internal/modules/correction/domain"
	"grammar-api-app/internal/modules/correction/domain/repository"
)

// cachedCorrection キャッシュに保存するバックエンドの出力
type cachedCorrection struct {
	CorrectedText string                  `json:"correctedText"`
	Edits         []domain.CorrectionEdit `json:"edits"`
}

// CachedBackend バックエンドの出力をキャッシュするデコレーター
//
// キャッシュの失敗は記録するだけで補正は続行する。
type CachedBackend struct {
	backend domain.Backend
	cache   repository.CacheRepository
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCachedBackend 新しいCachedBackendを作成
func NewCachedBackend(backend domain.Backend, cache repository.CacheRepository, ttl time.Duration, logger *slog.Logger) *CachedBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedBackend{
		backend: backend,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// Name 元のバックエンド名を返す
func (b *CachedBackend) Name() string {
	return b.backend.Name()
}

// TryCorrect キャッシュがあればそれを使い、なければ元のバックエンドを呼ぶ
func (b *CachedBackend) TryCorrect(ctx context.Context, text, language string) (*domain.CorrectionResult, error) {
	key := CacheKey(b.backend.Name(), language, text)

	data, err := b.cache.Get(ctx, key)
	switch {
	case err == nil:
		var cached cachedCorrection
		if err := json.Unmarshal(data, &cached); err == nil {
			b.logger.Debug("correction cache hit", slog.String("backend", b.Name()))
			return b.rebuild(text, language, cached), nil
		}
		b.logger.Warn("failed to decode cached correction", slog.String("key", key))
	case !errors.Is(err, repository.ErrCacheMiss):
		b.logger.Warn("failed to read correction cache", slog.String("error", err.Error()))
	}

	result, err := b.backend.TryCorrect(ctx, text, language)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cachedCorrection{CorrectedText: result.CorrectedText, Edits: result.Edits})
	if err != nil {
		b.logger.Warn("failed to encode correction for cache", slog.String("error", err.Error()))
		return result, nil
	}
	if err := b.cache.Set(ctx, key, payload, b.ttl); err != nil {
		b.logger.Warn("failed to write correction cache", slog.String("error", err.Error()))
	}
	return result, nil
}

// rebuild キャッシュした出力から新しい補正結果を組み立てる
func (b *CachedBackend) rebuild(text, language string, cached cachedCorrection) *domain.CorrectionResult {
	result := &domain.CorrectionResult{
		OriginalText:  text,
		CorrectedText: cached.CorrectedText,
		Edits:         cached.Edits,
		Language:      domain.LookupLanguage(language),
		ServiceUsed:   b.backend.Name(),
	}
	domain.Normalize(result, len(cached.Edits))
	return result
}

// CacheKey キャッシュのキー
func CacheKey(backend, language, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "correction:" + backend + ":" + language + ":" + hex.EncodeToString(sum[:])
}
