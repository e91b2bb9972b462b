package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
	"github.com/kailas-cloud/voxhome/internal/metrics"
)

// Config holds the embedding provider settings.
// BaseURL must already include the /v1 suffix.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Logger     *zap.Logger
}

// Embedder calls /embeddings on an OpenAI-compatible endpoint
// (DashScope compatible mode, vLLM).
type Embedder struct {
	client  *openai.Client
	request openai.EmbeddingRequest
	keyed   bool
	rec     metrics.EmbeddingRecorder
	logger  *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client: openai.NewClientWithConfig(clientCfg),
		request: openai.EmbeddingRequest{
			Model:          openai.EmbeddingModel(cfg.Model),
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
			Dimensions:     max(cfg.Dimensions, 0),
			User:           cfg.User,
		},
		keyed:  cfg.APIKey != "",
		rec:    metrics.NewEmbeddingRecorder(cfg.Provider, cfg.Model),
		logger: logger,
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed sends all texts in one request. Vectors land at the index the
// provider reports; positions it omits stay nil and the partial result comes
// back together with an error.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	if !e.keyed {
		e.rec.Failure(metrics.EmbedErrMissingKey)
		return out, fmt.Errorf("embedding api key: %w", domain.ErrConfigurationMissing)
	}

	req := e.request
	req.Input = texts

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		e.rec.Failure(metrics.EmbedErrAPI)
		return out, providerError(err)
	}
	if len(resp.Data) == 0 {
		e.rec.Failure(metrics.EmbedErrEmpty)
		return out, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(texts) && len(d.Embedding) > 0 {
			out.Embeddings[d.Index] = d.Embedding
		}
	}
	out.PromptTokens = resp.Usage.PromptTokens
	out.TotalTokens = resp.Usage.TotalTokens
	e.rec.Success(time.Since(start), out.PromptTokens, out.TotalTokens)

	if missing := out.Missing(); len(missing) > 0 {
		e.rec.Partial()
		e.logger.Warn("Embedding response shorter than request",
			zap.Int("requested", len(texts)), zap.Ints("missing", missing))
		return out, fmt.Errorf("embedding response missing %d of %d items: %w",
			len(missing), len(texts), domain.ErrEmbeddingProviderError)
	}
	return out, nil
}

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if !e.keyed {
		return fmt.Errorf("embedding api key: %w", domain.ErrConfigurationMissing)
	}
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// providerError flattens go-openai errors into a readable message wrapped
// with domain.ErrEmbeddingProviderError.
func providerError(err error) error {
	var (
		status  int
		message string
		reqErr  *openai.RequestError
		apiErr  *openai.APIError
	)
	switch {
	case errors.As(err, &reqErr):
		status, message = reqErr.HTTPStatusCode, bodyMessage(reqErr.Body)
	case errors.As(err, &apiErr):
		status, message = apiErr.HTTPStatusCode, apiErr.Message
	default:
		return fmt.Errorf("embedding request failed: %v: %w", err, domain.ErrEmbeddingProviderError)
	}
	return fmt.Errorf("embedding API error %d: %s: %w", status, message, domain.ErrEmbeddingProviderError)
}

// bodyMessage pulls a message out of a JSON error body. DashScope reports
// {"code","message"}; some gateways use {"detail"}. Anything else is returned raw.
func bodyMessage(body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return string(body)
}
