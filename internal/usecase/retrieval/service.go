// Package retrieval builds knowledge-base context for generation prompts.
package retrieval

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// System prompts.
const (
	PlainPrompt   = "You are a helpful assistant."
	StrictPrefix  = "严格根据以下【知识库】内容和用户问题作答：仅使用知识库中已有的信息，不要编造、不要猜测。若知识库中无与问题相关的内容，请明确回答「根据当前知识库暂无相关内容」或「不知道」，不要胡说八道。"
	UnknownPrompt = "你是一个助手。若无法确定答案，请明确说不知道，不要编造。"
	LenientPrefix = "参考以下知识库内容回答用户问题。如知识库无相关内容，可凭自身知识回答。"

	contextHeader = "\n\n【知识库】\n"
	separator     = "\n\n"
)

// Config controls retrieval.
type Config struct {
	Enabled  bool
	TopK     int
	MinScore float64
}

// Prompt is a system message with the context it was built from.
type Prompt struct {
	System  string
	Context string
}

// Service retrieves relevant documents and renders system prompts.
type Service struct {
	store    Store
	embedder Embedder
	cfg      Config
	logger   *zap.Logger
}

// New creates a retrieval service. TopK defaults to 5; MinScore is used as
// given, so 0 keeps every non-negative match.
func New(store Store, embedder Embedder, cfg Config, logger *zap.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &Service{store: store, embedder: embedder, cfg: cfg, logger: logger}
}

// Enabled reports whether prompts include retrieved context.
func (s *Service) Enabled() bool { return s.cfg.Enabled }

// BuildContext returns the texts of the top k documents scoring at least
// MinScore, best first, joined by blank lines. Any miss yields "".
func (s *Service) BuildContext(ctx context.Context, query string, k int) string {
	if s.store.Size() == 0 || strings.TrimSpace(query) == "" {
		return ""
	}
	vec, ok := s.embedder.Embed(ctx, query)
	if !ok {
		s.logger.Debug("Query embedding unavailable, skipping retrieval")
		return ""
	}

	results := s.store.Search(vec, k)
	texts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Score < s.cfg.MinScore {
			continue
		}
		texts = append(texts, r.Document.Text())
	}

	s.logger.Debug("Retrieval finished",
		zap.Int("candidates", len(results)),
		zap.Int("kept", len(texts)),
		zap.Float64("min_score", s.cfg.MinScore),
	)
	return strings.Join(texts, separator)
}

// SystemPrompt builds the strict prompt used by the voice pipeline.
func (s *Service) SystemPrompt(ctx context.Context, query string) Prompt {
	if !s.cfg.Enabled {
		return Prompt{System: PlainPrompt}
	}
	c := s.BuildContext(ctx, query, s.cfg.TopK)
	if c == "" {
		return Prompt{System: UnknownPrompt}
	}
	return Prompt{System: StrictPrefix + contextHeader + c, Context: c}
}

// LenientPrompt builds the prompt for the text endpoint, which may fall back
// to the model's own knowledge.
func (s *Service) LenientPrompt(ctx context.Context, query string) Prompt {
	if !s.cfg.Enabled {
		return Prompt{System: PlainPrompt}
	}
	c := s.BuildContext(ctx, query, s.cfg.TopK)
	if c == "" {
		return Prompt{System: PlainPrompt}
	}
	return Prompt{System: LenientPrefix + contextHeader + c, Context: c}
}
