// Package ollama talks to a local Ollama server's embedding endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
	"github.com/kailas-cloud/voxhome/internal/metrics"
)

const provider = "ollama"

// Config holds the Ollama endpoint settings.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Embedder vectorizes text via POST /api/embed.
type Embedder struct {
	baseURL string
	model   string
	client  *http.Client
	rec     metrics.EmbeddingRecorder
	logger  *zap.Logger
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings      [][]float32 `json:"embeddings"`
	PromptEvalCount int         `json:"prompt_eval_count"`
}

// NewEmbedder creates an Ollama embedder.
func NewEmbedder(cfg *Config) *Embedder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
		rec:     metrics.NewEmbeddingRecorder(provider, cfg.Model),
		logger:  logger,
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

// BatchEmbed implements domain.BatchEmbedder. /api/embed accepts a list input
// and answers with vectors in input order.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}

	body, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return out, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		e.rec.Failure(metrics.EmbedErrAPI)
		return out, fmt.Errorf("ollama request failed: %v: %w", err, domain.ErrEmbeddingProviderError)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.rec.Failure(metrics.EmbedErrAPI)
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return out, fmt.Errorf("ollama returned status %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(msg)), domain.ErrEmbeddingProviderError)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		e.rec.Failure(metrics.EmbedErrDecode)
		return out, fmt.Errorf("decode ollama response: %v: %w", err, domain.ErrEmbeddingProviderError)
	}
	if len(parsed.Embeddings) == 0 {
		e.rec.Failure(metrics.EmbedErrEmpty)
		return out, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	for i, v := range parsed.Embeddings {
		if i >= len(texts) {
			break
		}
		if len(v) > 0 {
			out.Embeddings[i] = v
		}
	}
	out.PromptTokens = parsed.PromptEvalCount
	out.TotalTokens = parsed.PromptEvalCount

	e.rec.Success(time.Since(start), 0, out.TotalTokens)

	if missing := out.Missing(); len(missing) > 0 {
		e.rec.Partial()
		e.logger.Warn("Ollama response shorter than request",
			zap.Int("requested", len(texts)), zap.Ints("missing", missing))
		return out, fmt.Errorf("ollama response missing %d of %d items: %w",
			len(missing), len(texts), domain.ErrEmbeddingProviderError)
	}
	return out, nil
}

// HealthCheck asks the server for its version.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("build version request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama version: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama version: status %d", resp.StatusCode)
	}
	return nil
}
