// Package chat records answered questions and serves the history.
package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain/audit"
)

// History paging limits.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Service is the audit sink of the voice flows.
type Service struct {
	repo    Repository
	indexer Indexer
	logger  *zap.Logger
}

// New creates a chat service. indexer may be nil.
func New(repo Repository, indexer Indexer, logger *zap.Logger) *Service {
	return &Service{repo: repo, indexer: indexer, logger: logger}
}

// Append stores rec, then indexes it into the knowledge base.
// Indexing failures are logged only.
func (s *Service) Append(ctx context.Context, rec audit.Record) error {
	saved, err := s.repo.Append(ctx, rec)
	if err != nil {
		return fmt.Errorf("append chat: %w", err)
	}
	if s.indexer == nil {
		return nil
	}
	if err := s.indexer.IndexChat(ctx, saved); err != nil {
		s.logger.Warn("Chat indexing failed", zap.Int64("chat_id", saved.ID), zap.Error(err))
	}
	return nil
}

// History returns one page, newest first.
func (s *Service) History(ctx context.Context, page, size int) (audit.Page, error) {
	page, size = ClampPage(page, size)
	p, err := s.repo.Page(ctx, page, size)
	if err != nil {
		return audit.Page{}, fmt.Errorf("chat history: %w", err)
	}
	return p, nil
}

// ClampPage floors page at 0 and bounds size to 1..MaxPageSize; a zero size means DefaultPageSize.
func ClampPage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	switch {
	case size == 0:
		size = DefaultPageSize
	case size < 1:
		size = 1
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}
