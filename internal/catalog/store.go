// Package catalog loads the versioned product snapshot and serves it as a
// read-only in-memory lookup. The snapshot is loaded once at startup; a
// missing file is a degraded mode, not a fatal error; search then falls back
// to metadata-only enrichment.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/cartly-ai/shopsearch/internal/domain"
)

// Snapshot is the on-disk catalog document.
type Snapshot struct {
	Metadata SnapshotMeta     `json:"metadata"`
	Products []domain.Product `json:"products"`
}

// SnapshotMeta describes the snapshot provenance.
type SnapshotMeta struct {
	TotalProducts int      `json:"total_products"`
	Categories    []string `json:"categories,omitempty"`
	ProcessedAt   string   `json:"processed_at,omitempty"`
	Source        string   `json:"source,omitempty"`
}

// Store is the read-only product lookup shared across requests.
type Store struct {
	byID     map[string]domain.Product
	meta     SnapshotMeta
	degraded bool
}

// Load reads the snapshot file. A missing or corrupt file returns a degraded
// (empty) store together with a domain.ErrCatalogUnavailable-wrapped error so
// the caller can log once and keep running.
func Load(path string, logger *zap.Logger) (*Store, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		logger.Warn("catalog snapshot unavailable, running degraded",
			zap.String("path", path), zap.Error(err))
		return &Store{byID: map[string]domain.Product{}, degraded: true},
			fmt.Errorf("%w: read %s: %v", domain.ErrCatalogUnavailable, path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn("catalog snapshot corrupt, running degraded",
			zap.String("path", path), zap.Error(err))
		return &Store{byID: map[string]domain.Product{}, degraded: true},
			fmt.Errorf("%w: parse %s: %v", domain.ErrCatalogUnavailable, path, err)
	}

	s := FromSnapshot(snap)
	logger.Info("catalog loaded",
		zap.String("path", path),
		zap.Int("products", s.Len()),
		zap.String("source", snap.Metadata.Source),
	)
	return s, nil
}

// FromSnapshot builds a store from an in-memory snapshot.
func FromSnapshot(snap Snapshot) *Store {
	byID := make(map[string]domain.Product, len(snap.Products))
	for _, p := range snap.Products {
		if p.ID == "" {
			continue
		}
		byID[p.ID] = p
	}
	return &Store{byID: byID, meta: snap.Metadata}
}

// Get returns the product for an ID.
func (s *Store) Get(id string) (domain.Product, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// Len returns the number of products loaded.
func (s *Store) Len() int { return len(s.byID) }

// Degraded reports whether the snapshot failed to load.
func (s *Store) Degraded() bool { return s.degraded }

// Metadata returns the snapshot provenance.
func (s *Store) Metadata() SnapshotMeta { return s.meta }

// All returns every product in unspecified order. Used by the indexer.
func (s *Store) All() []domain.Product {
	out := make([]domain.Product, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	return out
}

// Categories returns the sorted distinct category names.
func (s *Store) Categories() []string {
	seen := make(map[string]struct{})
	for _, p := range s.byID {
		if p.Category != "" {
			seen[p.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
