// Package embedding turns provider results into the gateway contract used by
// retrieval and ingestion: a vector or "no result", and per-item batch outcomes.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
	"github.com/kailas-cloud/voxhome/internal/domain/batch"
)

// Gateway hides provider errors behind a boolean result. Nothing is retried.
type Gateway struct {
	inner  domain.Embedder
	logger *zap.Logger
}

// NewGateway creates a gateway over the decorated embedder chain.
func NewGateway(inner domain.Embedder, logger *zap.Logger) *Gateway {
	return &Gateway{inner: inner, logger: logger}
}

// Embed returns the vector for text, or false when the provider gave nothing usable.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	res, err := g.inner.Embed(ctx, text)
	if err != nil {
		g.logger.Warn("Embedding unavailable", zap.Error(err))
		return nil, false
	}
	if len(res.Embedding) == 0 {
		g.logger.Warn("Embedding provider returned an empty vector")
		return nil, false
	}
	return res.Embedding, true
}

// EmbedBatch embeds texts and reports one result per input position.
// A provider-level failure marks every item as failed; a short response
// marks only the missing positions.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) []batch.Result {
	if len(texts) == 0 {
		return nil
	}

	var res domain.BatchEmbeddingResult
	var err error
	if be, ok := g.inner.(domain.BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, texts)
	} else {
		res, err = domain.BatchFallback(ctx, g.inner, texts)
	}
	if err != nil {
		g.logger.Warn("Batch embedding incomplete", zap.Int("batch_size", len(texts)), zap.Error(err))
	}

	itemErr := err
	if itemErr == nil {
		itemErr = fmt.Errorf("no vector returned: %w", domain.ErrEmptyResult)
	}

	out := make([]batch.Result, len(texts))
	for i := range texts {
		if i < len(res.Embeddings) && len(res.Embeddings[i]) > 0 {
			out[i] = batch.NewOK(i, "", res.Embeddings[i])
			continue
		}
		out[i] = batch.NewError(i, itemErr)
	}
	return out
}

// HealthCheck reports provider availability.
func (g *Gateway) HealthCheck(ctx context.Context) error {
	if hc, ok := g.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding provider: %w", err)
		}
	}
	return nil
}
