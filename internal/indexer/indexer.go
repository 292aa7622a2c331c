// Package indexer derives embedding views from catalog products and writes
// them to the vector index in batches.
package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cartly-ai/shopsearch/internal/domain"
	"github.com/cartly-ai/shopsearch/internal/index"
	"github.com/cartly-ai/shopsearch/internal/metrics"
)

// Batch size defaults. Embedding batches bound provider round-trips; upsert
// batches respect index service limits.
const (
	DefaultEmbedBatchSize  = 64
	DefaultUpsertBatchSize = 100
)

// Config holds indexing batch parameters. Zero values select defaults.
type Config struct {
	EmbedBatchSize  int
	UpsertBatchSize int
}

// Indexer runs the full catalog indexing pipeline. Indexing is a single-writer
// maintenance operation; concurrent runs interleave batches non-deterministically
// and are not supported.
type Indexer struct {
	embedder domain.Embedder
	index    index.Index
	logger   *zap.Logger

	embedBatch  int
	upsertBatch int
}

// New creates an Indexer.
func New(embedder domain.Embedder, ix index.Index, cfg Config, logger *zap.Logger) *Indexer {
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = DefaultUpsertBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		embedder:    embedder,
		index:       ix,
		logger:      logger,
		embedBatch:  cfg.EmbedBatchSize,
		upsertBatch: cfg.UpsertBatchSize,
	}
}

// Index derives views for every product, embeds them, and upserts the entries.
// Returns the number of views written. A failed batch aborts the run with an
// IndexWriteError reporting progress; batches already committed stay in the
// index (at-least-once semantics, no rollback).
func (ix *Indexer) Index(ctx context.Context, products []domain.Product) (int, error) {
	entries, err := ix.buildEntries(ctx, products)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	upserted := 0
	batchNum := 0
	for start := 0; start < len(entries); start += ix.upsertBatch {
		batchNum++
		end := start + ix.upsertBatch
		if end > len(entries) {
			end = len(entries)
		}

		if err := ix.index.Upsert(ctx, entries[start:end]); err != nil {
			metrics.IndexBatchesTotal.WithLabelValues("error").Inc()
			ix.logger.Error("upsert batch failed",
				zap.Int("batch", batchNum),
				zap.Int("upserted", upserted),
				zap.Error(err))
			return upserted, domain.NewIndexWriteError(batchNum, upserted, err)
		}

		upserted += end - start
		metrics.IndexBatchesTotal.WithLabelValues("success").Inc()
		metrics.IndexViewsUpserted.Add(float64(end - start))
	}

	ix.logger.Info("indexing complete",
		zap.Int("products", len(products)),
		zap.Int("views", upserted))
	return upserted, nil
}

// buildEntries derives all views and embeds their texts in fixed-size batches.
// Entry order follows product order, views A, B, C within each product.
func (ix *Indexer) buildEntries(ctx context.Context, products []domain.Product) ([]index.Entry, error) {
	var entries []index.Entry
	var texts []string

	for _, p := range products {
		if p.ID == "" {
			continue
		}
		for _, v := range deriveViews(p) {
			entries = append(entries, index.Entry{
				ID:   ViewID(p.ID, v.Tag),
				Meta: viewMetadata(p, v.Tag),
			})
			texts = append(texts, v.Text)
		}
	}

	for start := 0; start < len(texts); start += ix.embedBatch {
		end := start + ix.embedBatch
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := ix.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed views %d..%d: %w", start, end, err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("%w: got %d vectors for %d view texts",
				domain.ErrEmbeddingProvider, len(vectors), end-start)
		}
		for i, vec := range vectors {
			entries[start+i].Vector = vec
		}
	}

	return entries, nil
}
