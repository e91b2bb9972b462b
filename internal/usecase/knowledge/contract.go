package knowledge

import (
	"context"

	"github.com/kailas-cloud/voxhome/internal/domain/batch"
	"github.com/kailas-cloud/voxhome/internal/domain/device"
	"github.com/kailas-cloud/voxhome/internal/domain/vector"
)

// Store is the semantic store the service writes to.
type Store interface {
	Add(ctx context.Context, doc vector.Document) error
	AddAll(ctx context.Context, docs []vector.Document) error
	Remove(ctx context.Context, id string) error
	RemoveBySource(ctx context.Context, source string) (int, error)
	Clear(ctx context.Context) error
	Size() int
	Search(query []float32, k int) []vector.SearchResult
}

// Embedder is the embedding gateway.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, bool)
	EmbedBatch(ctx context.Context, texts []string) []batch.Result
}

// DeviceLister reads the device directory.
type DeviceLister interface {
	FindAll(ctx context.Context, enabledOnly bool) ([]device.Device, error)
}
