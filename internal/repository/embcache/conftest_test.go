package embcache

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/db"
	"github.com/kailas-cloud/voxhome/internal/domain"
)

// memStore is a map-backed key-value store. getErr and setErr force failures.
type memStore struct {
	data   map[string][]byte
	getErr error
	setErr error
	sets   int
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

// fakeEmbedder maps each text to a one-element vector from vecs. Texts
// absent from vecs come back nil. It supports native batching.
type fakeEmbedder struct {
	vecs    map[string]float32
	tokens  int
	err     error
	calls   int
	batched [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.calls++
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	v, ok := f.vecs[text]
	if !ok {
		return domain.EmbeddingResult{}, errors.New("unknown text")
	}
	return domain.EmbeddingResult{Embedding: []float32{v}, PromptTokens: f.tokens, TotalTokens: f.tokens}, nil
}

func (f *fakeEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	f.calls++
	f.batched = append(f.batched, texts)
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	if f.err != nil {
		return out, f.err
	}
	for i, text := range texts {
		if v, ok := f.vecs[text]; ok {
			out.Embeddings[i] = []float32{v}
		}
	}
	out.PromptTokens = f.tokens * len(texts)
	out.TotalTokens = f.tokens * len(texts)
	if len(out.Missing()) > 0 {
		return out, domain.ErrEmbeddingProviderError
	}
	return out, nil
}

// singleEmbedder has no native batch support.
type singleEmbedder struct {
	calls int
}

func (s *singleEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	s.calls++
	return domain.EmbeddingResult{Embedding: []float32{0.7}, TotalTokens: 1}, nil
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
}

func newCached(t *testing.T, inner domain.Embedder, s *memStore, lookups *prometheus.CounterVec) *CachedEmbedder {
	t.Helper()
	return New(inner, s, "voxhome:", "text-embedding-v3", lookups, zap.NewNop())
}
