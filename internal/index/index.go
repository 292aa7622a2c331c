// Package index defines the vector index contract: an append-only store of
// (vector, metadata) entries supporting filtered nearest-neighbor queries.
// Backends live in subpackages (redis for production, memory for tests and
// local runs).
package index

import "context"

// Op is a filter predicate operator.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// Condition is one field predicate. A query filter is a conjunction of
// conditions. Exactly one of Str, Num, or Set is meaningful depending on Op:
// OpEq uses Str for tag fields or Num for numeric fields, OpGte/OpLte use Num,
// OpIn uses Set.
type Condition struct {
	Field  string
	Op     Op
	Str    string
	Num    float64
	Set    []int
	IsText bool
}

// Eq creates an equality condition on a tag field.
func Eq(field, value string) Condition {
	return Condition{Field: field, Op: OpEq, Str: value, IsText: true}
}

// EqNum creates an equality condition on a numeric field.
func EqNum(field string, value float64) Condition {
	return Condition{Field: field, Op: OpEq, Num: value}
}

// Gte creates an inclusive lower bound on a numeric field.
func Gte(field string, value float64) Condition {
	return Condition{Field: field, Op: OpGte, Num: value}
}

// Lte creates an inclusive upper bound on a numeric field.
func Lte(field string, value float64) Condition {
	return Condition{Field: field, Op: OpLte, Num: value}
}

// In creates a set-membership condition on an integer-valued numeric field.
func In(field string, values []int) Condition {
	return Condition{Field: field, Op: OpIn, Set: values}
}

// Metadata is the denormalized product snapshot attached to every view entry
// at index time. It can go stale if the catalog changes without re-indexing;
// the engine degrades to these fields when the catalog has no match.
type Metadata struct {
	ProductID     string   `json:"product_id"`
	ViewTag       string   `json:"view_tag"`
	Title         string   `json:"title"`
	Category      string   `json:"category"`
	Subcategories []string `json:"subcategories,omitempty"`
	Store         string   `json:"store,omitempty"`
	Price         float64  `json:"price"`
	PriceBucket   int      `json:"price_bucket"`
	Rating        float64  `json:"rating"`
	RatingCount   int      `json:"rating_count"`
	ImageURL      string   `json:"image_url,omitempty"`
}

// Entry is one indexed view: ID is "{product_id}#{view_tag}", so re-indexing
// a product overwrites its prior views in place.
type Entry struct {
	ID     string
	Vector []float32
	Meta   Metadata
}

// Match is one query hit. Score is cosine similarity in [0,1].
type Match struct {
	ID    string
	Score float64
	Meta  Metadata
}

// Stats describes the index contents.
type Stats struct {
	TotalVectorCount int
}

// Index is the vector index contract. Upsert is idempotent on entry ID.
// Query returns up to topK matches ordered by score descending, restricted to
// entries satisfying every filter condition.
type Index interface {
	Upsert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, vector []float32, topK int, filters []Condition) ([]Match, error)
	Describe(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) error
}
