// Package knowledge manages knowledge-base documents: manual entries,
// device descriptions synced from the directory and indexed chat turns.
package knowledge

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
	"github.com/kailas-cloud/voxhome/internal/domain/audit"
	"github.com/kailas-cloud/voxhome/internal/domain/batch"
	"github.com/kailas-cloud/voxhome/internal/domain/vector"
)

// Search limits.
const (
	DefaultTopK = 5
	MaxTopK     = 50
)

// Input is one document to embed and store.
type Input struct {
	Text     string
	Metadata map[string]string
}

// Stats describes the store.
type Stats struct {
	Size      int
	StoreType string
}

// Service embeds and stores knowledge-base documents.
type Service struct {
	store     Store
	embedder  Embedder
	devices   DeviceLister
	storeType string
	newID     func() string
	logger    *zap.Logger
}

// New creates a knowledge service.
func New(store Store, embedder Embedder, devices DeviceLister, storeType string, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		embedder:  embedder,
		devices:   devices,
		storeType: storeType,
		newID:     newID,
		logger:    logger,
	}
}

// newID returns 16 hex characters of a random UUID.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Add embeds text and stores it. The source tag defaults to "manual".
func (s *Service) Add(ctx context.Context, text string, metadata map[string]string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text is required: %w", domain.ErrInvalidInput)
	}
	vec, ok := s.embedder.Embed(ctx, text)
	if !ok {
		return "", fmt.Errorf("embed document: %w", domain.ErrEmbeddingProviderError)
	}
	doc, err := vector.New(s.newID(), text, vec, withSource(metadata, vector.SourceManual))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := s.store.Add(ctx, doc); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}
	s.logger.Debug("Document added", zap.String("id", doc.ID()), zap.Int("text_len", len(text)))
	return doc.ID(), nil
}

// AddBatch embeds and stores items in one provider call. Results are
// positional; a blank text or a missing vector fails only its own item.
func (s *Service) AddBatch(ctx context.Context, items []Input) []batch.Result {
	return s.addBatch(ctx, items, vector.SourceManual)
}

func (s *Service) addBatch(ctx context.Context, items []Input, defaultSource string) []batch.Result {
	results := make([]batch.Result, len(items))
	texts := make([]string, 0, len(items))
	positions := make([]int, 0, len(items))

	for i, it := range items {
		if strings.TrimSpace(it.Text) == "" {
			results[i] = batch.NewError(i, fmt.Errorf("text is required: %w", domain.ErrInvalidInput))
			continue
		}
		texts = append(texts, it.Text)
		positions = append(positions, i)
	}
	if len(texts) == 0 {
		return results
	}

	embedded := s.embedder.EmbedBatch(ctx, texts)
	docs := make([]vector.Document, 0, len(texts))
	stored := make([]int, 0, len(texts))

	for j, r := range embedded {
		pos := positions[j]
		if !r.OK() {
			results[pos] = batch.NewError(pos, fmt.Errorf("embed document: %w", r.Err()))
			continue
		}
		it := items[pos]
		doc, err := vector.New(s.newID(), it.Text, r.Vector(), withSource(it.Metadata, defaultSource))
		if err != nil {
			results[pos] = batch.NewError(pos, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
			continue
		}
		docs = append(docs, doc)
		stored = append(stored, pos)
	}

	if len(docs) == 0 {
		return results
	}
	if err := s.store.AddAll(ctx, docs); err != nil {
		for _, pos := range stored {
			results[pos] = batch.NewError(pos, fmt.Errorf("store document: %w", err))
		}
		return results
	}
	for k, pos := range stored {
		results[pos] = batch.NewOK(pos, docs[k].ID(), nil)
	}
	return results
}

// Remove deletes one document.
func (s *Service) Remove(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id is required: %w", domain.ErrInvalidInput)
	}
	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove document: %w", err)
	}
	return nil
}

// RemoveBySource deletes every document with the given source tag.
func (s *Service) RemoveBySource(ctx context.Context, source string) (int, error) {
	if strings.TrimSpace(source) == "" {
		return 0, fmt.Errorf("source is required: %w", domain.ErrInvalidInput)
	}
	n, err := s.store.RemoveBySource(ctx, source)
	if err != nil {
		return n, fmt.Errorf("remove by source: %w", err)
	}
	return n, nil
}

// Search embeds query and returns up to topK documents, clamped to 1..50.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]vector.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}
	topK = ClampTopK(topK)
	vec, ok := s.embedder.Embed(ctx, query)
	if !ok {
		return nil, fmt.Errorf("embed query: %w", domain.ErrEmbeddingProviderError)
	}
	return s.store.Search(vec, topK), nil
}

// ClampTopK applies the default and the 1..50 bounds.
func ClampTopK(topK int) int {
	if topK == 0 {
		return DefaultTopK
	}
	return min(max(topK, 1), MaxTopK)
}

// Stats returns the document count and backend type.
func (s *Service) Stats() Stats {
	return Stats{Size: s.store.Size(), StoreType: s.storeType}
}

// Clear removes every document.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	s.logger.Info("Knowledge base cleared")
	return nil
}

// IndexChat stores a question/answer pair as a knowledge-base entry.
func (s *Service) IndexChat(ctx context.Context, rec audit.Record) error {
	if strings.TrimSpace(rec.Question) == "" {
		return nil
	}
	meta := map[string]string{
		vector.KeySource:   vector.SourceChat,
		vector.KeyCategory: "对话记录",
		"chatId":           strconv.FormatInt(rec.ID, 10),
		"mode":             string(rec.Mode),
		"answerSource":     rec.AnswerSource,
	}
	if rec.RAGUsed {
		meta["ragUsed"] = "true"
	}
	if _, err := s.Add(ctx, rec.KnowledgeText(), meta); err != nil {
		return fmt.Errorf("index chat %d: %w", rec.ID, err)
	}
	return nil
}

func withSource(metadata map[string]string, source string) map[string]string {
	out := maps.Clone(metadata)
	if out == nil {
		out = make(map[string]string, 1)
	}
	if strings.TrimSpace(out[vector.KeySource]) == "" {
		out[vector.KeySource] = source
	}
	return out
}
