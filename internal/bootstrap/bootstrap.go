// Package bootstrap builds the components shared by the server and the loader.
package bootstrap

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/config"
	"github.com/kailas-cloud/voxhome/internal/db"
	"github.com/kailas-cloud/voxhome/internal/domain"
	"github.com/kailas-cloud/voxhome/internal/metrics"
	"github.com/kailas-cloud/voxhome/internal/repository/embcache"
	"github.com/kailas-cloud/voxhome/internal/repository/vectorstore"
	"github.com/kailas-cloud/voxhome/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/voxhome/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/voxhome/internal/usecase/embedding"
)

// Store is the database surface the shared components need.
type Store interface {
	db.HashStore
	db.KVStore
	db.SortedSetStore
}

// Embedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction.
// Metrics must be registered by the caller.
func Embedder(cfg config.Config, store Store, logger *zap.Logger) domain.Embedder {
	e := cfg.Embedding
	provider, model := e.Protocol, e.Model

	var base domain.Embedder
	switch e.Protocol {
	case "ollama":
		model = e.OllamaModel
		base = ollama.NewEmbedder(&ollama.Config{
			BaseURL: e.OllamaBaseURL,
			Model:   model,
			Timeout: time.Duration(e.TimeoutSec) * time.Second,
			Logger:  logger,
		})
	default:
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     e.APIKey,
			BaseURL:    V1(e.BaseURL),
			Model:      model,
			Dimensions: e.Dimensions,
			Provider:   provider,
			Logger:     logger,
		})
	}
	logger.Info("Embedder created",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Bool("cache", e.CacheEnabled()),
	)

	embedder := base
	if e.CacheEnabled() && store != nil {
		embedder = embcache.New(base, store, cfg.Storage.KeyPrefix, model, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, provider, model, logger)

	// Instruction prefix (outermost, so the cache key includes it)
	if e.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, e.QueryInstruction)
	}
	return embedder
}

// VectorStore returns the configured semantic store backend. Callers Load it.
func VectorStore(cfg config.Config, store Store, logger *zap.Logger) vectorstore.Store {
	if cfg.VectorStore.Type == vectorstore.TypeSnapshot {
		return vectorstore.NewSnapshot(cfg.VectorStore.Path, logger)
	}
	return vectorstore.NewDurable(store, cfg.Storage.KeyPrefix, logger)
}

// V1 appends the OpenAI-compatible /v1 suffix to a base URL.
func V1(base string) string {
	return strings.TrimRight(base, "/") + "/v1"
}
