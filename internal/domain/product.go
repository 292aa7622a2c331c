package domain

// Product is one catalog entry as stored in the processed snapshot. Price and
// Rating are pointers: absent means unknown, which is distinct from zero.
type Product struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category,omitempty"`
	Subcategories []string `json:"subcategories,omitempty"`
	Store         string   `json:"store,omitempty"`
	Features      []string `json:"features,omitempty"`
	SearchText    string   `json:"search_text,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	RatingCount   int      `json:"rating_count,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
}

// Price bucket breakpoints in catalog currency units. Buckets are half-open
// on the left: 10 falls in bucket 1, not 0.
var priceBucketBounds = []float64{10, 25, 50, 100}

// PriceBucket maps a price to a coarse tier for filtering: -1 unknown (nil or
// non-positive), 0 under 10, 1 under 25, 2 under 50, 3 under 100, 4 above.
func PriceBucket(price *float64) int {
	if price == nil || *price <= 0 {
		return -1
	}
	for i, bound := range priceBucketBounds {
		if *price < bound {
			return i
		}
	}
	return len(priceBucketBounds)
}

// Float returns a pointer to v. Convenience for optional numeric fields.
func Float(v float64) *float64 { return &v }
