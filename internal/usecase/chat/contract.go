package chat

import (
	"context"

	"github.com/kailas-cloud/voxhome/internal/domain/audit"
)

// Repository defines the storage contract for the chat history.
type Repository interface {
	Append(ctx context.Context, rec audit.Record) (audit.Record, error)
	Page(ctx context.Context, page, size int) (audit.Page, error)
}

// Indexer mirrors answered questions into the knowledge base.
type Indexer interface {
	IndexChat(ctx context.Context, rec audit.Record) error
}
