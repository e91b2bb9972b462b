package retrieval

import (
	"context"

	"github.com/kailas-cloud/voxhome/internal/domain/vector"
)

// Store is the read side of the semantic store.
type Store interface {
	Size() int
	Search(query []float32, k int) []vector.SearchResult
}

// Embedder vectorizes the query; false means no result.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, bool)
}
