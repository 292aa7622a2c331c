package request

import (
	"fmt"
	"strings"

	"github.com/cartly-ai/shopsearch/internal/domain"
	"github.com/cartly-ai/shopsearch/internal/domain/search/filter"
)

// Search parameter limits and defaults.
const (
	MaxQueryLength = 1024
	DefaultTopK    = 10
	MaxTopK        = 100

	// DefaultMinSimilarity gates text searches. Image-derived queries are
	// lossier, so callers building them pass ImageMinSimilarity instead.
	DefaultMinSimilarity = 0.25
	ImageMinSimilarity   = 0.10

	// Oversample is how many raw candidates are requested per final slot.
	// Every product contributes 2-3 views, so naive top_k would under-return
	// distinct products after collapsing. Must stay >= 5.
	Oversample = 5
)

// Request is a validated, normalized search query.
type Request struct {
	query         string
	filters       filter.Filters
	topK          int
	minSimilarity float64
}

// New validates and normalizes search parameters. Defaults: topK=10,
// minSimilarity=0.25. An inverted price range in filters is swapped rather
// than rejected.
func New(query string, f filter.Filters, topK int, minSimilarity *float64) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}

	if err := f.Validate(); err != nil {
		return Request{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	minSim := DefaultMinSimilarity
	if minSimilarity != nil {
		minSim = *minSimilarity
	}
	if minSim < 0 || minSim > 1 {
		return Request{}, fmt.Errorf("%w: min_similarity must be between 0 and 1", domain.ErrInvalidRequest)
	}

	return Request{
		query:         query,
		filters:       f.Normalize(),
		topK:          topK,
		minSimilarity: minSim,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Filters returns the normalized filters.
func (r *Request) Filters() filter.Filters { return r.filters }

// TopK returns the number of collapsed results to return.
func (r *Request) TopK() int { return r.topK }

// CandidateK returns the oversampled raw candidate count to request from the
// index before collapsing.
func (r *Request) CandidateK() int { return r.topK * Oversample }

// MinSimilarity returns the relevance gate applied before collapsing.
func (r *Request) MinSimilarity() float64 { return r.minSimilarity }
