package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/db"
	"github.com/kailas-cloud/voxhome/internal/domain"
	"github.com/kailas-cloud/voxhome/internal/domain/vector"
)

// store is the consumer interface for the durable backend (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Durable keeps every document as a hash in the key-value store and serves
// searches from an in-memory mirror.
type Durable struct {
	store  store
	prefix string
	logger *zap.Logger

	mu   sync.RWMutex
	docs map[string]vector.Document
}

// NewDurable creates a durable backend. Call Load before serving searches.
func NewDurable(s store, keyPrefix string, logger *zap.Logger) *Durable {
	return &Durable{
		store:  s,
		prefix: keyPrefix + "vecdoc:",
		logger: logger,
		docs:   make(map[string]vector.Document),
	}
}

// Load replaces the mirror with every record found in the store.
// Records that fail to parse are skipped.
func (d *Durable) Load(ctx context.Context) error {
	keys, err := d.store.Scan(ctx, d.prefix+"*")
	if err != nil {
		return fmt.Errorf("scan documents: %w", err)
	}

	loaded := make(map[string]vector.Document, len(keys))
	if len(keys) > 0 {
		rows, err := d.store.HGetAllMulti(ctx, keys)
		if err != nil {
			return fmt.Errorf("load documents: %w", err)
		}
		for i, row := range rows {
			if len(row) == 0 {
				continue
			}
			id := strings.TrimPrefix(keys[i], d.prefix)
			doc, err := parseHashFields(id, row)
			if err != nil {
				d.logger.Debug("Skipping malformed vector record", zap.String("id", id), zap.Error(err))
				continue
			}
			loaded[id] = doc
		}
	}

	d.mu.Lock()
	d.docs = loaded
	d.mu.Unlock()

	d.logger.Info("Vector store loaded", zap.Int("documents", len(loaded)))
	return nil
}

// Add persists doc and then replaces its mirror entry.
func (d *Durable) Add(ctx context.Context, doc vector.Document) error {
	fields, err := buildHashFields(doc)
	if err != nil {
		return err
	}
	if err := d.store.HSet(ctx, d.key(doc.ID()), fields); err != nil {
		return fmt.Errorf("hset %s: %w", doc.ID(), err)
	}

	d.mu.Lock()
	d.docs[doc.ID()] = doc
	d.mu.Unlock()
	return nil
}

// AddAll persists docs in one round-trip. The mirror is only updated when the write succeeds.
func (d *Durable) AddAll(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(docs))
	for i, doc := range docs {
		fields, err := buildHashFields(doc)
		if err != nil {
			return fmt.Errorf("document %s: %w", doc.ID(), err)
		}
		items[i] = db.HashSetItem{Key: d.key(doc.ID()), Fields: fields}
	}
	if err := d.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset batch: %w", err)
	}

	d.mu.Lock()
	for _, doc := range docs {
		d.docs[doc.ID()] = doc
	}
	d.mu.Unlock()
	return nil
}

// Remove deletes one document.
func (d *Durable) Remove(ctx context.Context, id string) error {
	d.mu.RLock()
	_, ok := d.docs[id]
	d.mu.RUnlock()
	if !ok {
		return domain.ErrDocumentNotFound
	}

	if err := d.store.Del(ctx, d.key(id)); err != nil {
		return fmt.Errorf("del %s: %w", id, err)
	}

	d.mu.Lock()
	delete(d.docs, id)
	d.mu.Unlock()
	return nil
}

// RemoveBySource deletes every document tagged with source and returns how many were removed.
func (d *Durable) RemoveBySource(ctx context.Context, source string) (int, error) {
	d.mu.RLock()
	var ids []string
	for id, doc := range d.docs {
		if doc.Source() == source {
			ids = append(ids, id)
		}
	}
	d.mu.RUnlock()

	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = d.key(id)
	}
	if err := d.store.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("del source %s: %w", source, err)
	}

	d.mu.Lock()
	for _, id := range ids {
		delete(d.docs, id)
	}
	d.mu.Unlock()

	d.logger.Debug("Removed documents by source", zap.String("source", source), zap.Int("count", len(ids)))
	return len(ids), nil
}

// Clear deletes every stored document, including records the mirror never loaded.
func (d *Durable) Clear(ctx context.Context) error {
	keys, err := d.store.Scan(ctx, d.prefix+"*")
	if err != nil {
		return fmt.Errorf("scan documents: %w", err)
	}
	if err := d.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("del documents: %w", err)
	}

	d.mu.Lock()
	d.docs = make(map[string]vector.Document)
	d.mu.Unlock()
	return nil
}

// Size returns the number of mirrored documents.
func (d *Durable) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs)
}

// Search ranks the mirror against query.
func (d *Durable) Search(query []float32, k int) []vector.SearchResult {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return vector.Rank(mapValues(d.docs), query, k)
}

func (d *Durable) key(id string) string { return d.prefix + id }

func mapValues(m map[string]vector.Document) []vector.Document {
	out := make([]vector.Document, 0, len(m))
	for _, doc := range m {
		out = append(out, doc)
	}
	return out
}
