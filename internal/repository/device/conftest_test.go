package device

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/kailas-cloud/voxhome/internal/db"
	domdev "github.com/kailas-cloud/voxhome/internal/domain/device"
)

// mockStore is an in-memory implementation of the consumer interface.
// The Fn fields override individual operations.
type mockStore struct {
	hashes map[string]map[string]string
	kv     map[string][]byte
	zsets  map[string]map[string]float64
	seq    map[string]int64

	hgetAllFn func(ctx context.Context, key string) (map[string]string, error)
	incrFn    func(ctx context.Context, key string) (int64, error)
}

func newMockStore() *mockStore {
	return &mockStore{
		hashes: make(map[string]map[string]string),
		kv:     make(map[string][]byte),
		zsets:  make(map[string]map[string]float64),
		seq:    make(map[string]int64),
	}
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.hashes[key] = fields
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	h, ok := m.hashes[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return h, nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
	}
	return out, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.hashes, k)
		delete(m.kv, k)
	}
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	m.kv[key] = value
	return nil
}

func (m *mockStore) Incr(ctx context.Context, key string) (int64, error) {
	if m.incrFn != nil {
		return m.incrFn(ctx, key)
	}
	m.seq[key]++
	return m.seq[key], nil
}

func (m *mockStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] = score
	return nil
}

func (m *mockStore) ZRem(_ context.Context, key, member string) error {
	delete(m.zsets[key], member)
	return nil
}

func (m *mockStore) ZRange(_ context.Context, key string, _, _ int64) ([]string, error) {
	members := make([]string, 0, len(m.zsets[key]))
	for mem := range m.zsets[key] {
		members = append(members, mem)
	}
	sort.Slice(members, func(i, j int) bool {
		return m.zsets[key][members[i]] < m.zsets[key][members[j]]
	})
	return members, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := newMockStore()
	repo := New(ms, "voxhome:")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	return repo, ms
}

func testDevice(did, room string, enabled bool) domdev.Device {
	return domdev.Device{
		DeviceID:   did,
		Name:       room + "灯",
		Room:       room,
		Endpoint:   "http://192.168.1.10:8080",
		Method:     domdev.MethodPOST,
		OnCommand:  `{"action":"on"}`,
		OffCommand: `{"action":"off"}`,
		Enabled:    enabled,
	}
}

func mustCreate(t *testing.T, r *Repo, d domdev.Device) domdev.Device {
	t.Helper()
	created, err := r.Create(context.Background(), d)
	if err != nil {
		t.Fatalf("Create(%s): %v", d.DeviceID, err)
	}
	return created
}

