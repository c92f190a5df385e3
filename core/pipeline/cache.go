package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yf-river/LifeOS/metrics"
)

// DefaultCacheTTL is used when a CachedEmbedder is created with ttl <= 0.
const DefaultCacheTTL = 24 * time.Hour

// CachedEmbedder keeps single text embeddings in redis.
// Batches bypass the cache. Any redis failure falls back to the wrapped embedder.
type CachedEmbedder struct {
	Embedder
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedEmbedder wraps embedder with a redis cache.
func NewCachedEmbedder(embedder Embedder, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedEmbedder {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedEmbedder{
		Embedder: embedder,
		client:   client,
		ttl:      ttl,
		logger:   logger,
	}
}

// CacheKey returns the redis key of text for the given model.
func CacheKey(modelName string, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "lifeos:embedding:" + modelName + ":" + hex.EncodeToString(sum[:])
}

// Embed returns the cached vector or embeds and stores it.
// Absent vectors are not cached.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) []float32 {
	key := CacheKey(c.Embedder.Model(), text)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var vector []float32
		if err := json.Unmarshal(raw, &vector); err == nil && len(vector) > 0 {
			metrics.EmbeddingCache.WithLabelValues("hit").Inc()
			return vector
		}
		metrics.EmbeddingCache.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.EmbeddingCache.WithLabelValues("miss").Inc()
	default:
		metrics.EmbeddingCache.WithLabelValues("error").Inc()
		c.logger.Warn("Embedding cache lookup failed", slog.Any("error", err))
	}

	vector := c.Embedder.Embed(ctx, text)
	if vector == nil {
		return nil
	}

	encoded, err := json.Marshal(vector)
	if err != nil {
		return vector
	}
	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.logger.Warn("Embedding cache store failed", slog.Any("error", err))
	}

	return vector
}
