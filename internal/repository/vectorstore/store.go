// Package vectorstore implements the semantic store backends: a durable one
// over the key-value database and a JSON snapshot file.
package vectorstore

import (
	"context"

	"github.com/kailas-cloud/voxhome/internal/domain/vector"
)

// Backend type names accepted by vector_store.type.
const (
	TypeDurable  = "durable"
	TypeSnapshot = "snapshot"
)

// Store is the contract shared by both backends.
type Store interface {
	Load(ctx context.Context) error
	Add(ctx context.Context, doc vector.Document) error
	AddAll(ctx context.Context, docs []vector.Document) error
	Remove(ctx context.Context, id string) error
	RemoveBySource(ctx context.Context, source string) (int, error)
	Clear(ctx context.Context) error
	Size() int
	Search(query []float32, k int) []vector.SearchResult
}

var (
	_ Store = (*Durable)(nil)
	_ Store = (*Snapshot)(nil)
)
