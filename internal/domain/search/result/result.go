package result

import (
	"encoding/json"

	"github.com/cartly-ai/shopsearch/internal/domain"
)

// Result is one ranked product with its best view similarity.
type Result struct {
	Product domain.Product
	Score   float64
	// Stub marks a result synthesized from index metadata because the
	// catalog snapshot had no entry for the product. Not serialized.
	Stub bool
}

// flatResult is the wire form of a Result: product fields inlined at the top
// level with similarity_score alongside them.
type flatResult struct {
	domain.Product
	Score float64 `json:"similarity_score"`
}

// MarshalJSON flattens the product into the result object, so clients read
// title, price and similarity_score at the same level.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(flatResult{Product: r.Product, Score: r.Score})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var f flatResult
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	r.Product = f.Product
	r.Score = f.Score
	return nil
}

// Response is the full search outcome surfaced to callers. TotalFound counts
// collapsed product groups before top-k truncation so callers can tell there
// were more matches than shown.
type Response struct {
	Query        string   `json:"query"`
	RefinedQuery string   `json:"refined_query,omitempty"`
	Results      []Result `json:"results"`
	TotalFound   int      `json:"total_found"`
	Message      string   `json:"message,omitempty"`
}

// Empty creates a no-match response with a human-readable message.
func Empty(query, refined, message string) Response {
	return Response{
		Query:        query,
		RefinedQuery: refined,
		Results:      []Result{},
		TotalFound:   0,
		Message:      message,
	}
}
