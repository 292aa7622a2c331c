package domain

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentGeneral       Intent = "GENERAL_CONVERSATION"
	IntentProductSearch Intent = "PRODUCT_SEARCH"
	IntentImageSearch   Intent = "IMAGE_SEARCH"
)

// IsValid reports whether the intent is one of the known values.
func (i Intent) IsValid() bool {
	switch i {
	case IntentGeneral, IntentProductSearch, IntentImageSearch:
		return true
	}
	return false
}

// ClassifierDirective is the structured output the external classifier must
// emit for every message. Filter hints are suggestions only: caller-supplied
// filters override them per key.
type ClassifierDirective struct {
	Intent       Intent
	RefinedQuery string
	Reply        string
	Category     string
	MinPrice     *float64
	MaxPrice     *float64
	MinRating    *float64
}
