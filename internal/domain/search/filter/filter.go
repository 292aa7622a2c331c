// Package filter holds the caller-facing search filters and their translation
// into the index's native condition grammar.
package filter

import (
	"fmt"

	"github.com/cartly-ai/shopsearch/internal/index"
)

// Index field names the filters map onto.
const (
	FieldCategory    = "category"
	FieldPrice       = "price"
	FieldPriceBucket = "price_bucket"
	FieldRating      = "rating"
)

// Filters are the optional constraints a search accepts. All fields are
// optional; zero values mean "unset" except the pointer fields.
type Filters struct {
	Category     string   `json:"category,omitempty"`
	MinPrice     *float64 `json:"min_price,omitempty"`
	MaxPrice     *float64 `json:"max_price,omitempty"`
	MinRating    *float64 `json:"min_rating,omitempty"`
	PriceBuckets []int    `json:"price_bucket,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool {
	return f.Category == "" && f.MinPrice == nil && f.MaxPrice == nil &&
		f.MinRating == nil && len(f.PriceBuckets) == 0
}

// Normalize repairs recoverable inconsistencies instead of rejecting them:
// a min_price above max_price is swapped, min_rating is clamped to [0,5].
func (f Filters) Normalize() Filters {
	out := f
	if out.MinPrice != nil && out.MaxPrice != nil && *out.MinPrice > *out.MaxPrice {
		out.MinPrice, out.MaxPrice = out.MaxPrice, out.MinPrice
	}
	if out.MinRating != nil {
		r := *out.MinRating
		if r < 0 {
			r = 0
		}
		if r > 5 {
			r = 5
		}
		out.MinRating = &r
	}
	return out
}

// Validate rejects constraints Normalize cannot repair.
func (f Filters) Validate() error {
	for _, b := range f.PriceBuckets {
		if b < -1 || b > 4 {
			return fmt.Errorf("price bucket %d out of range [-1,4]", b)
		}
	}
	return nil
}

// Conditions translates normalized filters into the index condition grammar.
// min/max price become independent bounds on the same field; the backend may
// merge them into one two-sided range clause.
func (f Filters) Conditions() []index.Condition {
	var conds []index.Condition
	if f.Category != "" {
		conds = append(conds, index.Eq(FieldCategory, f.Category))
	}
	if f.MinPrice != nil {
		conds = append(conds, index.Gte(FieldPrice, *f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, index.Lte(FieldPrice, *f.MaxPrice))
	}
	if f.MinRating != nil {
		conds = append(conds, index.Gte(FieldRating, *f.MinRating))
	}
	switch len(f.PriceBuckets) {
	case 0:
	case 1:
		conds = append(conds, index.EqNum(FieldPriceBucket, float64(f.PriceBuckets[0])))
	default:
		conds = append(conds, index.In(FieldPriceBucket, f.PriceBuckets))
	}
	return conds
}

// Merge overlays caller filters on top of hints: any key the caller set wins,
// any key left unset falls back to the hint. Shallow, per-key.
func Merge(hints, caller Filters) Filters {
	out := hints
	if caller.Category != "" {
		out.Category = caller.Category
	}
	if caller.MinPrice != nil {
		out.MinPrice = caller.MinPrice
	}
	if caller.MaxPrice != nil {
		out.MaxPrice = caller.MaxPrice
	}
	if caller.MinRating != nil {
		out.MinRating = caller.MinRating
	}
	if len(caller.PriceBuckets) > 0 {
		out.PriceBuckets = caller.PriceBuckets
	}
	return out
}
