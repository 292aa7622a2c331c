// Package memory is a brute-force cosine index used in tests and local runs
// without a Redis instance. It honors the same contract and filter grammar as
// the redis backend.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cartly-ai/shopsearch/internal/index"
)

// Index is an in-memory vector index. Safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	entries map[string]index.Entry
	order   []string // insertion order, keeps query results stable on ties
	dim     int
}

var _ index.Index = (*Index)(nil)

// New creates an empty in-memory index for vectors of length dim.
func New(dim int) *Index {
	return &Index{entries: make(map[string]index.Entry), dim: dim}
}

// Upsert inserts or overwrites entries by ID.
func (ix *Index) Upsert(_ context.Context, entries []index.Entry) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("entry ID is required")
		}
		if len(e.Vector) != ix.dim {
			return fmt.Errorf("entry %s: vector dimension %d, want %d", e.ID, len(e.Vector), ix.dim)
		}
		if _, exists := ix.entries[e.ID]; !exists {
			ix.order = append(ix.order, e.ID)
		}
		ix.entries[e.ID] = e
	}
	return nil
}

// Query scans all entries, applies the filter conjunction, and returns the
// topK most similar matches ordered by score descending.
func (ix *Index) Query(_ context.Context, vector []float32, topK int, filters []index.Condition) ([]index.Match, error) {
	if len(vector) != ix.dim {
		return nil, fmt.Errorf("query vector dimension %d, want %d", len(vector), ix.dim)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	matches := make([]index.Match, 0, topK)
	for _, id := range ix.order {
		e := ix.entries[id]
		if !satisfies(e.Meta, filters) {
			continue
		}
		matches = append(matches, index.Match{
			ID:    e.ID,
			Score: similarity(vector, e.Vector),
			Meta:  e.Meta,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Describe returns the vector count.
func (ix *Index) Describe(_ context.Context) (index.Stats, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return index.Stats{TotalVectorCount: len(ix.entries)}, nil
}

// Clear removes all entries.
func (ix *Index) Clear(_ context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = make(map[string]index.Entry)
	ix.order = nil
	return nil
}

// satisfies evaluates the filter conjunction against entry metadata.
func satisfies(m index.Metadata, filters []index.Condition) bool {
	for _, c := range filters {
		if !evaluate(m, c) {
			return false
		}
	}
	return true
}

func evaluate(m index.Metadata, c index.Condition) bool {
	switch c.Op {
	case index.OpEq:
		if c.IsText {
			s, ok := tagValue(m, c.Field)
			return ok && s == c.Str
		}
		n, ok := numericValue(m, c.Field)
		return ok && n == c.Num
	case index.OpGte:
		n, ok := numericValue(m, c.Field)
		return ok && n >= c.Num
	case index.OpLte:
		n, ok := numericValue(m, c.Field)
		return ok && n <= c.Num
	case index.OpIn:
		n, ok := numericValue(m, c.Field)
		if !ok {
			return false
		}
		for _, v := range c.Set {
			if n == float64(v) {
				return true
			}
		}
		return false
	}
	return false
}

func tagValue(m index.Metadata, field string) (string, bool) {
	switch field {
	case "category":
		return m.Category, true
	case "store":
		return m.Store, true
	case "product_id":
		return m.ProductID, true
	case "view_tag":
		return m.ViewTag, true
	}
	return "", false
}

func numericValue(m index.Metadata, field string) (float64, bool) {
	switch field {
	case "price":
		return m.Price, true
	case "price_bucket":
		return float64(m.PriceBucket), true
	case "rating":
		return m.Rating, true
	case "rating_count":
		return float64(m.RatingCount), true
	}
	return 0, false
}

// similarity is cosine similarity clamped to [0,1], matching the score
// convention of the redis backend.
func similarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return math.Max(0, dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}
