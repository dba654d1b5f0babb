package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
	"github.com/tachyon-beep/duskmantle-gateway/internal/metrics"
)

// KVStore is the slice of the database this cache needs.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

const keyPrefix = domain.KeyPrefix + "emb_cache:"

// Embedder wraps another embedder with a Redis-backed cache keyed by a
// hash of the input text. Cache failures degrade to a direct call.
type Embedder struct {
	inner  domain.Embedder
	store  KVStore
	ttl    time.Duration
	logger *zap.Logger
}

func NewEmbedder(inner domain.Embedder, store KVStore, ttl time.Duration, logger *zap.Logger) *Embedder {
	return &Embedder{inner: inner, store: store, ttl: ttl, logger: logger}
}

func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := cacheKey(text)

	if raw, err := e.store.Get(ctx, key); err == nil {
		var cached domain.EmbeddingResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			return cached, nil
		}
		e.logger.Warn("embedding cache entry corrupt", zap.String("key", key), zap.Error(err))
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	result, err := e.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	if encoded, err := json.Marshal(result); err == nil {
		if err := e.store.SetWithTTL(ctx, key, encoded, e.ttl); err != nil {
			e.logger.Warn("embedding cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return keyPrefix + hex.EncodeToString(sum[:])
}
