package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
	"github.com/kailas-cloud/voxhome/internal/domain/vector"
)

// Snapshot keeps the corpus in memory and rewrites a JSON file after every mutation.
// The file is written after the lock is released, so concurrent writers may
// persist snapshots out of order; the in-memory state is always authoritative.
type Snapshot struct {
	path   string
	logger *zap.Logger

	mu   sync.RWMutex
	docs map[string]vector.Document
}

// NewSnapshot creates a snapshot backend persisted at path.
func NewSnapshot(path string, logger *zap.Logger) *Snapshot {
	return &Snapshot{path: path, logger: logger, docs: make(map[string]vector.Document)}
}

// Load reads the snapshot file. A missing file yields an empty store and an
// unparsable one is logged and ignored. A malformed record is skipped on its own.
func (s *Snapshot) Load(_ context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("Vector snapshot not found, starting empty", zap.String("path", s.path))
			return nil
		}
		return fmt.Errorf("read snapshot: %w", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("Failed to parse vector snapshot, starting empty",
			zap.String("path", s.path), zap.Error(err))
		return nil
	}

	loaded := make(map[string]vector.Document, len(records))
	for i, rec := range records {
		doc, err := decodeSnapshotDoc(rec)
		if err != nil {
			s.logger.Warn("Skipping malformed snapshot record", zap.Int("index", i), zap.Error(err))
			continue
		}
		loaded[doc.ID()] = doc
	}

	s.mu.Lock()
	s.docs = loaded
	s.mu.Unlock()

	s.logger.Info("Vector snapshot loaded", zap.String("path", s.path), zap.Int("documents", len(loaded)))
	return nil
}

// Add inserts or replaces doc.
func (s *Snapshot) Add(_ context.Context, doc vector.Document) error {
	s.mu.Lock()
	s.docs[doc.ID()] = doc
	s.mu.Unlock()
	return s.persist()
}

// AddAll inserts or replaces docs with a single rewrite.
func (s *Snapshot) AddAll(_ context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}
	s.mu.Lock()
	for _, doc := range docs {
		s.docs[doc.ID()] = doc
	}
	s.mu.Unlock()
	return s.persist()
}

// Remove deletes one document.
func (s *Snapshot) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.docs[id]; !ok {
		s.mu.Unlock()
		return domain.ErrDocumentNotFound
	}
	delete(s.docs, id)
	s.mu.Unlock()
	return s.persist()
}

// RemoveBySource deletes every document tagged with source.
func (s *Snapshot) RemoveBySource(_ context.Context, source string) (int, error) {
	s.mu.Lock()
	n := 0
	for id, doc := range s.docs {
		if doc.Source() == source {
			delete(s.docs, id)
			n++
		}
	}
	s.mu.Unlock()

	if n == 0 {
		return 0, nil
	}
	return n, s.persist()
}

// Clear removes every document.
func (s *Snapshot) Clear(_ context.Context) error {
	s.mu.Lock()
	s.docs = make(map[string]vector.Document)
	s.mu.Unlock()
	return s.persist()
}

// Size returns the number of documents.
func (s *Snapshot) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Search ranks the corpus against query.
func (s *Snapshot) Search(query []float32, k int) []vector.SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vector.Rank(mapValues(s.docs), query, k)
}

func (s *Snapshot) persist() error {
	s.mu.RLock()
	out := make([]snapshotDoc, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, toSnapshotDoc(doc))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot temp: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error wins
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func decodeSnapshotDoc(rec json.RawMessage) (vector.Document, error) {
	var sd snapshotDoc
	if err := json.Unmarshal(rec, &sd); err != nil {
		return vector.Document{}, fmt.Errorf("decode record: %w", err)
	}
	return sd.toDomain()
}
