package knowledge

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
	"github.com/kailas-cloud/voxhome/internal/domain/batch"
	"github.com/kailas-cloud/voxhome/internal/domain/device"
	"github.com/kailas-cloud/voxhome/internal/domain/vector"
)

// memStore is an in-memory Store with injectable failures.
type memStore struct {
	docs      map[string]vector.Document
	addAllErr error
	searchK   int
}

func newMemStore() *memStore { return &memStore{docs: make(map[string]vector.Document)} }

func (m *memStore) Add(_ context.Context, doc vector.Document) error {
	m.docs[doc.ID()] = doc
	return nil
}

func (m *memStore) AddAll(_ context.Context, docs []vector.Document) error {
	if m.addAllErr != nil {
		return m.addAllErr
	}
	for _, d := range docs {
		m.docs[d.ID()] = d
	}
	return nil
}

func (m *memStore) Remove(_ context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memStore) RemoveBySource(_ context.Context, source string) (int, error) {
	n := 0
	for id, d := range m.docs {
		if d.Source() == source {
			delete(m.docs, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) Clear(_ context.Context) error {
	m.docs = make(map[string]vector.Document)
	return nil
}

func (m *memStore) Size() int { return len(m.docs) }

func (m *memStore) Search(query []float32, k int) []vector.SearchResult {
	m.searchK = k
	all := make([]vector.Document, 0, len(m.docs))
	for _, d := range m.docs {
		all = append(all, d)
	}
	return vector.Rank(all, query, k)
}

func (m *memStore) bySource(source string) []vector.Document {
	var out []vector.Document
	for _, d := range m.docs {
		if d.Source() == source {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text() < out[j].Text() })
	return out
}

// mockEmbedder returns a fixed vector; texts listed in fail get no result.
type mockEmbedder struct {
	vec        []float32
	fail       map[string]bool
	batchCalls int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, bool) {
	if m.fail[text] || m.vec == nil {
		return nil, false
	}
	return m.vec, true
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) []batch.Result {
	m.batchCalls++
	out := make([]batch.Result, len(texts))
	for i, t := range texts {
		if m.fail[t] || m.vec == nil {
			out[i] = batch.NewError(i, fmt.Errorf("no vector: %w", domain.ErrEmbeddingProviderError))
			continue
		}
		out[i] = batch.NewOK(i, "", m.vec)
	}
	return out
}

type mockDevices struct {
	devices     []device.Device
	err         error
	enabledOnly bool
}

func (m *mockDevices) FindAll(_ context.Context, enabledOnly bool) ([]device.Device, error) {
	m.enabledOnly = enabledOnly
	return m.devices, m.err
}

func newTestService(t *testing.T, store *memStore, emb *mockEmbedder, devs *mockDevices) *Service {
	t.Helper()
	if devs == nil {
		devs = &mockDevices{}
	}
	s := New(store, emb, devs, "durable", zap.NewNop())
	seq := 0
	s.newID = func() string {
		seq++
		return fmt.Sprintf("doc-%02d", seq)
	}
	return s
}
