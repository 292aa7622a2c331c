// Package engine implements the retrieval pipeline: embed the query, run an
// oversampled filtered vector search, collapse view matches per product, and
// enrich the survivors from the catalog.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cartly-ai/shopsearch/internal/catalog"
	"github.com/cartly-ai/shopsearch/internal/domain"
	"github.com/cartly-ai/shopsearch/internal/domain/search/request"
	"github.com/cartly-ai/shopsearch/internal/domain/search/result"
	"github.com/cartly-ai/shopsearch/internal/index"
	"github.com/cartly-ai/shopsearch/internal/metrics"
)

// Engine runs searches against a shared read-only catalog and index client.
// Safe for concurrent use.
type Engine struct {
	embedder domain.Embedder
	index    index.Index
	catalog  *catalog.Store
	logger   *zap.Logger
}

// New creates a query engine.
func New(embedder domain.Embedder, ix index.Index, store *catalog.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{embedder: embedder, index: ix, catalog: store, logger: logger}
}

// Search executes the retrieval pipeline for one request.
func (e *Engine) Search(ctx context.Context, req request.Request) (result.Response, error) {
	start := time.Now()

	resp, err := e.search(ctx, req)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(status).Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.SearchResultsReturned.Observe(float64(len(resp.Results)))
	}

	return resp, err
}

func (e *Engine) search(ctx context.Context, req request.Request) (result.Response, error) {
	vector, err := domain.EmbedOne(ctx, e.embedder, req.Query())
	if err != nil {
		return result.Response{}, fmt.Errorf("embed query: %w", err)
	}

	matches, err := e.index.Query(ctx, vector, req.CandidateK(), req.Filters().Conditions())
	if err != nil {
		return result.Response{}, fmt.Errorf("index query: %w", err)
	}

	collapsed := collapse(matches, req.MinSimilarity())
	totalFound := len(collapsed)

	e.logger.Debug("search collapsed",
		zap.String("query", req.Query()),
		zap.Int("raw_matches", len(matches)),
		zap.Int("products", totalFound))

	if totalFound == 0 {
		return result.Empty(req.Query(), req.Query(),
			"No products found matching your search criteria."), nil
	}

	if len(collapsed) > req.TopK() {
		collapsed = collapsed[:req.TopK()]
	}

	results := make([]result.Result, len(collapsed))
	for i, m := range collapsed {
		results[i] = e.enrich(m)
	}

	return result.Response{
		Query:        req.Query(),
		RefinedQuery: req.Query(),
		Results:      results,
		TotalFound:   totalFound,
		Message:      fmt.Sprintf("Found %d relevant products", len(results)),
	}, nil
}

// collapse gates matches on the similarity threshold, keeps the best-scoring
// view per product, and orders products by score descending. The gate runs
// before grouping so a product whose every view scores below threshold never
// appears. Ties keep the match the index returned first.
func collapse(matches []index.Match, minSimilarity float64) []index.Match {
	pos := make(map[string]int)
	var kept []index.Match

	for _, m := range matches {
		if m.Score < minSimilarity {
			continue
		}
		id := m.Meta.ProductID
		if id == "" {
			id = m.ID
		}
		if i, seen := pos[id]; seen {
			if m.Score > kept[i].Score {
				kept[i] = m
			}
			continue
		}
		pos[id] = len(kept)
		kept = append(kept, m)
	}

	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].Score > kept[b].Score
	})
	return kept
}

// enrich merges the full catalog product with the similarity score. An entry
// whose product is missing from the catalog snapshot degrades to a stub built
// from the view's denormalized metadata instead of being dropped.
func (e *Engine) enrich(m index.Match) result.Result {
	if p, ok := e.catalog.Get(m.Meta.ProductID); ok {
		if p.ImageURL == "" && m.Meta.ImageURL != "" {
			p.ImageURL = m.Meta.ImageURL
		}
		return result.Result{Product: p, Score: m.Score}
	}
	return result.Result{Product: stubProduct(m.Meta), Score: m.Score, Stub: true}
}

// stubProduct synthesizes a product from index metadata. Zero or negative
// price and rating become null rather than 0.0 in the JSON payload.
func stubProduct(meta index.Metadata) domain.Product {
	p := domain.Product{
		ID:            meta.ProductID,
		Title:         meta.Title,
		Description:   fmt.Sprintf("Product from %s category", meta.Category),
		Category:      meta.Category,
		Subcategories: meta.Subcategories,
		Store:         meta.Store,
		RatingCount:   meta.RatingCount,
		ImageURL:      meta.ImageURL,
	}
	if meta.Price > 0 {
		p.Price = domain.Float(meta.Price)
	}
	if meta.Rating > 0 {
		p.Rating = domain.Float(meta.Rating)
	}
	return p
}
