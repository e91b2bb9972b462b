package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
)

// DefaultMaxAPIBatchSize is the largest batch sent in one provider call.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder wraps an Embedder with logging and chunked batching.
// Transport metrics (requests, duration, tokens) are recorded in the transports.
type InstrumentedEmbedder struct {
	inner     domain.Embedder
	provider  string
	model     string
	chunkSize int
	logger    *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:     inner,
		provider:  provider,
		model:     model,
		chunkSize: DefaultMaxAPIBatchSize,
		logger:    logger,
	}
}

// WithChunkSize overrides the per-call batch limit.
func (p *InstrumentedEmbedder) WithChunkSize(n int) *InstrumentedEmbedder {
	if n > 0 {
		p.chunkSize = n
	}
	return p
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// BatchEmbed splits texts into chunks and delegates each to the inner embedder.
// A failed chunk leaves its positions nil; later chunks are still sent.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	var errs []error

	for offset := 0; offset < len(texts); offset += p.chunkSize {
		end := min(offset+p.chunkSize, len(texts))
		chunk := texts[offset:end]

		res, err := p.embedInner(ctx, chunk)
		for i := 0; i < len(chunk) && i < len(res.Embeddings); i++ {
			out.Embeddings[offset+i] = res.Embeddings[i]
		}
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens

		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("chunk %d: %w", offset, err))
		}
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("missing", len(out.Missing())),
		zap.Int("total_tokens", out.TotalTokens),
	)

	if len(errs) > 0 {
		return out, fmt.Errorf("batch embed: %w", errors.Join(errs...))
	}
	return out, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through decorator
	}
	return nil
}

func (p *InstrumentedEmbedder) embedInner(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := p.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts) //nolint:wrapcheck // wrapped by caller
	}
	return domain.BatchFallback(ctx, p.inner, texts)
}
