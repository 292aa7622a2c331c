package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/cartly-ai/shopsearch/internal/domain"
	"github.com/cartly-ai/shopsearch/internal/domain/search/filter"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New("bluetooth headphones", filter.Filters{}, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TopK() != DefaultTopK {
		t.Errorf("topK = %d, want %d", r.TopK(), DefaultTopK)
	}
	if r.MinSimilarity() != DefaultMinSimilarity {
		t.Errorf("minSimilarity = %v, want %v", r.MinSimilarity(), DefaultMinSimilarity)
	}
	if r.CandidateK() != DefaultTopK*Oversample {
		t.Errorf("candidateK = %d, want %d", r.CandidateK(), DefaultTopK*Oversample)
	}
}

func TestNew_EmptyQuery(t *testing.T) {
	_, err := New("   ", filter.Filters{}, 10, nil)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestNew_QueryTooLong(t *testing.T) {
	_, err := New(strings.Repeat("a", MaxQueryLength+1), filter.Filters{}, 10, nil)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestNew_ClampsTopK(t *testing.T) {
	r, err := New("q", filter.Filters{}, MaxTopK+50, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TopK() != MaxTopK {
		t.Errorf("topK = %d, want %d", r.TopK(), MaxTopK)
	}
}

func TestNew_MinSimilarityRange(t *testing.T) {
	if _, err := New("q", filter.Filters{}, 10, domain.Float(1.5)); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for 1.5, got %v", err)
	}
	r, err := New("q", filter.Filters{}, 10, domain.Float(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.MinSimilarity() != 0 {
		t.Errorf("explicit 0 should be kept, got %v", r.MinSimilarity())
	}
}

func TestNew_NormalizesFilters(t *testing.T) {
	f := filter.Filters{MinPrice: domain.Float(50), MaxPrice: domain.Float(10)}
	r, err := New("q", f, 10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := r.Filters()
	if *got.MinPrice != 10 || *got.MaxPrice != 50 {
		t.Errorf("filters not normalized: [%v,%v]", *got.MinPrice, *got.MaxPrice)
	}
}

func TestNew_RejectsBadBucket(t *testing.T) {
	_, err := New("q", filter.Filters{PriceBuckets: []int{9}}, 10, nil)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}
