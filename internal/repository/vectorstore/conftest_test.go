package vectorstore

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/db"
	"github.com/kailas-cloud/voxhome/internal/domain/vector"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hsetMultiFn    func(ctx context.Context, items []db.HashSetItem) error
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn          func(ctx context.Context, keys ...string) error
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

// memStore is an in-memory hash store used to round-trip records through Load.
type memStore struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
}

func newMemStore() *memStore { return &memStore{hashes: make(map[string]map[string]string)} }

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// HSET merges into an existing hash.
	h := m.hashes[key]
	if h == nil {
		h = make(map[string]string, len(fields))
		m.hashes[key] = h
	}
	for f, v := range fields {
		h[f] = v
	}
	return nil
}

func (m *memStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	for _, it := range items {
		_ = m.HSet(ctx, it.Key, it.Fields)
	}
	return nil
}

func (m *memStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
	}
	return out, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.hashes, k)
	}
	return nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func newTestDurable(t *testing.T) (*Durable, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return NewDurable(ms, "voxhome:", zap.NewNop()), ms
}

func testDoc(t *testing.T, id, source string, emb ...float32) vector.Document {
	t.Helper()
	var meta map[string]string
	if source != "" {
		meta = map[string]string{vector.KeySource: source}
	}
	d, err := vector.New(id, "text "+id, emb, meta)
	if err != nil {
		t.Fatalf("vector.New: %v", err)
	}
	return d
}
