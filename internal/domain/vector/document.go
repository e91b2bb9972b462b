// Package vector holds the semantic memory model: documents, search results and ranking.
package vector

import (
	"fmt"
	"maps"
)

// Metadata keys with meaning outside of free-form tagging.
const (
	KeySource   = "source"
	KeyCategory = "category"
)

// Provenance tags written to KeySource.
const (
	SourceManual     = "manual"
	SourceDevice     = "device"
	SourceDeviceRule = "device_rule"
	SourceChat       = "chat"
)

// Document is one entry of the semantic store (immutable value object).
type Document struct {
	id        string
	text      string
	embedding []float32
	metadata  map[string]string
}

// New validates and creates a Document.
func New(id, text string, embedding []float32, metadata map[string]string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if text == "" {
		return Document{}, fmt.Errorf("text is required")
	}
	if len(embedding) == 0 {
		return Document{}, fmt.Errorf("embedding is required")
	}
	return Document{
		id:        id,
		text:      text,
		embedding: append([]float32(nil), embedding...),
		metadata:  maps.Clone(metadata),
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, text string, embedding []float32, metadata map[string]string) Document {
	return Document{id: id, text: text, embedding: embedding, metadata: metadata}
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// Text returns the indexed text.
func (d Document) Text() string { return d.text }

// Embedding returns the document vector.
func (d Document) Embedding() []float32 { return d.embedding }

// Metadata returns the free-form metadata.
func (d Document) Metadata() map[string]string { return d.metadata }

// Source returns the provenance tag, empty when untagged.
func (d Document) Source() string { return d.metadata[KeySource] }

// Dim returns the embedding dimensionality.
func (d Document) Dim() int { return len(d.embedding) }
