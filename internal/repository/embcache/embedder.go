// Package embcache memoizes embeddings in the key-value store so repeated
// device descriptions, chat pairs and queries are not re-billed.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/db"
	"github.com/kailas-cloud/voxhome/internal/domain"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedEmbedder wraps an embedder with a cache keyed by model and text.
// Cache failures are logged and treated as misses.
type CachedEmbedder struct {
	inner   domain.Embedder
	store   store
	prefix  string
	model   string
	lookups *prometheus.CounterVec
	logger  *zap.Logger
}

// New creates the cache decorator. lookups, if non-nil, is incremented with
// label "hit" or "miss" on every lookup.
func New(
	inner domain.Embedder,
	s store,
	keyPrefix, model string,
	lookups *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:   inner,
		store:   s,
		prefix:  keyPrefix + "emb_cache:",
		model:   model,
		lookups: lookups,
		logger:  logger,
	}
}

// Embed serves a cached vector with zero token usage, or embeds and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)
	if vec, ok := c.lookup(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.save(ctx, key, res.Embedding)
	return res, nil
}

type miss struct {
	pos  int
	key  string
	text string
}

// BatchEmbed answers hits from the cache and sends only the misses upstream.
// The result is aligned with texts; misses the provider left empty stay nil.
// Token usage covers the upstream call only.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	var misses []miss
	for i, text := range texts {
		key := c.key(text)
		if vec, ok := c.lookup(ctx, key); ok {
			out.Embeddings[i] = vec
			continue
		}
		misses = append(misses, miss{pos: i, key: key, text: text})
	}
	if len(misses) == 0 {
		return out, nil
	}

	pending := make([]string, len(misses))
	for j, m := range misses {
		pending[j] = m.text
	}
	res, err := c.embedAll(ctx, pending)

	for j, m := range misses {
		if j < len(res.Embeddings) && len(res.Embeddings[j]) > 0 {
			out.Embeddings[m.pos] = res.Embeddings[j]
			c.save(ctx, m.key, res.Embeddings[j])
		}
	}
	out.PromptTokens = res.PromptTokens
	out.TotalTokens = res.TotalTokens
	if err != nil {
		return out, fmt.Errorf("embed %d uncached texts: %w", len(misses), err)
	}
	return out, nil
}

// HealthCheck delegates to the wrapped embedder when it can check itself.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through decorator
	}
	return nil
}

func (c *CachedEmbedder) embedAll(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := c.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts) //nolint:wrapcheck // wrapped by caller
	}
	return domain.BatchFallback(ctx, c.inner, texts)
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	vec, err := c.read(ctx, key)
	if err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
	}
	hit := err == nil && len(vec) > 0
	if c.lookups != nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		c.lookups.WithLabelValues(result).Inc()
	}
	return vec, hit
}

func (c *CachedEmbedder) read(ctx context.Context, key string) ([]float32, error) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err //nolint:wrapcheck // logged by lookup
	}
	return decode(data)
}

func (c *CachedEmbedder) save(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.store.Set(ctx, key, encode(vec)); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// encode packs a vector as little-endian float32s.
func encode(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decode(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("cached embedding has %d bytes, not a multiple of 4", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}
