package vectorstore

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/voxhome/internal/domain/vector"
)

// Hash field names of a durable document record.
const (
	fieldText      = "text"
	fieldEmbedding = "embedding"
	fieldMetadata  = "metadata"
	fieldSource    = "source"
)

// snapshotDoc is one element of the snapshot file.
type snapshotDoc struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func toSnapshotDoc(d vector.Document) snapshotDoc {
	var meta map[string]any
	if len(d.Metadata()) > 0 {
		meta = make(map[string]any, len(d.Metadata()))
		for k, v := range d.Metadata() {
			meta[k] = v
		}
	}
	return snapshotDoc{ID: d.ID(), Text: d.Text(), Embedding: d.Embedding(), Metadata: meta}
}

func (s snapshotDoc) toDomain() (vector.Document, error) {
	if s.ID == "" || len(s.Embedding) == 0 {
		return vector.Document{}, fmt.Errorf("incomplete record %q", s.ID)
	}
	return vector.Reconstruct(s.ID, s.Text, s.Embedding, flattenMetadata(s.Metadata)), nil
}

// buildHashFields converts a Document into the flat hash stored under its key.
func buildHashFields(d vector.Document) (map[string]string, error) {
	emb, err := json.Marshal(d.Embedding())
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}
	// metadata is always written, empty or not, so a replaced record never
	// keeps the previous record's fields.
	m := map[string]string{
		fieldText:      d.Text(),
		fieldEmbedding: string(emb),
		fieldSource:    d.Source(),
		fieldMetadata:  "",
	}
	if len(d.Metadata()) > 0 {
		meta, err := json.Marshal(d.Metadata())
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		m[fieldMetadata] = string(meta)
	}
	return m, nil
}

// parseHashFields converts a stored hash back into a Document.
func parseHashFields(id string, m map[string]string) (vector.Document, error) {
	var emb []float32
	if err := json.Unmarshal([]byte(m[fieldEmbedding]), &emb); err != nil {
		return vector.Document{}, fmt.Errorf("parse embedding: %w", err)
	}
	if len(emb) == 0 {
		return vector.Document{}, fmt.Errorf("empty embedding")
	}

	var meta map[string]string
	if raw := m[fieldMetadata]; raw != "" {
		var loose map[string]any
		if err := json.Unmarshal([]byte(raw), &loose); err != nil {
			return vector.Document{}, fmt.Errorf("parse metadata: %w", err)
		}
		meta = flattenMetadata(loose)
	}
	if src := m[fieldSource]; src != "" {
		if meta == nil {
			meta = make(map[string]string, 1)
		}
		if _, ok := meta[vector.KeySource]; !ok {
			meta[vector.KeySource] = src
		}
	}

	return vector.Reconstruct(id, m[fieldText], emb, meta), nil
}

// flattenMetadata keeps strings as-is and renders any other JSON value as text.
func flattenMetadata(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case nil:
			out[k] = ""
		default:
			b, err := json.Marshal(val)
			if err != nil {
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}
