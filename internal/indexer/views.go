package indexer

import (
	"strings"

	"github.com/cartly-ai/shopsearch/internal/domain"
	"github.com/cartly-ai/shopsearch/internal/index"
)

// View tags. A and B are derived for every product; C only when a
// precomputed search-text blob exists.
const (
	ViewAttributes = "A"
	ViewUsage      = "B"
	ViewKeywords   = "C"
)

const (
	maxTitleLen     = 200
	maxFeatures     = 6
	descriptionSnip = 600
	searchTextSnip  = 1000
	categoryPathSep = " > "
	viewSectionSep  = ". "
)

type view struct {
	Tag  string
	Text string
}

// deriveViews builds the textual projections of one product. Each view is a
// short, self-contained text optimized for a different kind of query: A for
// attribute matches, B for usage language, C for raw keywords.
func deriveViews(p domain.Product) []view {
	views := make([]view, 0, 3)

	var a []string
	if p.Title != "" {
		a = append(a, p.Title)
	}
	if p.Store != "" {
		a = append(a, p.Store)
	}
	if path := categoryPath(p); path != "" {
		a = append(a, path)
	}
	features := p.Features
	if len(features) > maxFeatures {
		features = features[:maxFeatures]
	}
	a = append(a, features...)
	views = append(views, view{Tag: ViewAttributes, Text: strings.Join(a, viewSectionSep)})

	var b []string
	if p.Title != "" {
		b = append(b, p.Title)
	}
	if p.Description != "" {
		b = append(b, truncate(p.Description, descriptionSnip))
	}
	views = append(views, view{Tag: ViewUsage, Text: strings.Join(b, viewSectionSep)})

	if p.SearchText != "" {
		c := []string{}
		if p.Title != "" {
			c = append(c, p.Title)
		}
		c = append(c, truncate(p.SearchText, searchTextSnip))
		views = append(views, view{Tag: ViewKeywords, Text: strings.Join(c, viewSectionSep)})
	}

	return views
}

// ViewID is the index identity of one view: "{product_id}#{tag}". Stable
// across re-indexing runs, which is what makes upserts idempotent.
func ViewID(productID, tag string) string {
	return productID + "#" + tag
}

// viewMetadata snapshots the filterable product fields at index time. The
// copy is denormalized on purpose: it can go stale if the catalog changes
// without a re-index.
func viewMetadata(p domain.Product, tag string) index.Metadata {
	var price, rating float64
	if p.Price != nil {
		price = *p.Price
	}
	if p.Rating != nil {
		rating = *p.Rating
	}
	return index.Metadata{
		ProductID:     p.ID,
		ViewTag:       tag,
		Title:         truncate(p.Title, maxTitleLen),
		Category:      p.Category,
		Subcategories: p.Subcategories,
		Store:         p.Store,
		Price:         price,
		PriceBucket:   domain.PriceBucket(p.Price),
		Rating:        rating,
		RatingCount:   p.RatingCount,
		ImageURL:      p.ImageURL,
	}
}

func categoryPath(p domain.Product) string {
	parts := make([]string, 0, 1+len(p.Subcategories))
	if p.Category != "" {
		parts = append(parts, p.Category)
	}
	for _, s := range p.Subcategories {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, categoryPathSep)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
