package vector

import (
	"cmp"
	"math"
	"slices"
)

// SearchResult pairs a document with its cosine similarity to the query.
type SearchResult struct {
	Document Document
	Score    float64
}

// Cosine returns the cosine similarity of a and b.
// ok is false when the lengths differ or either vector is empty.
// A zero-norm vector scores 0.
func Cosine(a, b []float32) (score float64, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		return 0, true
	}
	return dot / denom, true
}

// Rank scores every candidate with the query's dimensionality and returns the top k,
// ordered by descending score with ties broken by ascending id.
func Rank(candidates []Document, query []float32, k int) []SearchResult {
	if k <= 0 || len(query) == 0 {
		return nil
	}
	results := make([]SearchResult, 0, len(candidates))
	for _, d := range candidates {
		score, ok := Cosine(query, d.embedding)
		if !ok {
			continue
		}
		results = append(results, SearchResult{Document: d, Score: score})
	}
	slices.SortFunc(results, func(a, b SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Document.id, b.Document.id)
	})
	if k < len(results) {
		results = results[:k]
	}
	return results
}
