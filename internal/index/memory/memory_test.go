package memory

import (
	"context"
	"testing"

	"github.com/cartly-ai/shopsearch/internal/index"
)

func entry(id string, vec []float32, meta index.Metadata) index.Entry {
	return index.Entry{ID: id, Vector: vec, Meta: meta}
}

func TestUpsertAndDescribe(t *testing.T) {
	ix := New(3)
	ctx := context.Background()

	err := ix.Upsert(ctx, []index.Entry{
		entry("P1#A", []float32{1, 0, 0}, index.Metadata{ProductID: "P1"}),
		entry("P1#B", []float32{0, 1, 0}, index.Metadata{ProductID: "P1"}),
	})
	if err != nil {
		t.Fatal(err)
	}

	stats, err := ix.Describe(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalVectorCount != 2 {
		t.Errorf("count = %d, want 2", stats.TotalVectorCount)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	ix := New(3)
	ctx := context.Background()

	batch := []index.Entry{
		entry("P1#A", []float32{1, 0, 0}, index.Metadata{ProductID: "P1"}),
		entry("P1#B", []float32{0, 1, 0}, index.Metadata{ProductID: "P1"}),
	}
	if err := ix.Upsert(ctx, batch); err != nil {
		t.Fatal(err)
	}
	if err := ix.Upsert(ctx, batch); err != nil {
		t.Fatal(err)
	}

	stats, _ := ix.Describe(ctx)
	if stats.TotalVectorCount != 2 {
		t.Errorf("re-index duplicated entries: count = %d, want 2", stats.TotalVectorCount)
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	ix := New(3)
	err := ix.Upsert(context.Background(), []index.Entry{
		entry("P1#A", []float32{1, 0}, index.Metadata{}),
	})
	if err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestQuery_OrdersByScore(t *testing.T) {
	ix := New(2)
	ctx := context.Background()

	_ = ix.Upsert(ctx, []index.Entry{
		entry("far", []float32{0, 1}, index.Metadata{ProductID: "far"}),
		entry("near", []float32{1, 0.1}, index.Metadata{ProductID: "near"}),
		entry("exact", []float32{1, 0}, index.Metadata{ProductID: "exact"}),
	})

	matches, err := ix.Query(ctx, []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches", len(matches))
	}
	if matches[0].ID != "exact" || matches[1].ID != "near" || matches[2].ID != "far" {
		t.Errorf("wrong order: %s, %s, %s", matches[0].ID, matches[1].ID, matches[2].ID)
	}
	if matches[0].Score < 0.999 || matches[0].Score > 1 {
		t.Errorf("exact match score = %v, want ~1", matches[0].Score)
	}
}

func TestQuery_TopK(t *testing.T) {
	ix := New(2)
	ctx := context.Background()
	_ = ix.Upsert(ctx, []index.Entry{
		entry("a", []float32{1, 0}, index.Metadata{}),
		entry("b", []float32{0.9, 0.1}, index.Metadata{}),
		entry("c", []float32{0.8, 0.2}, index.Metadata{}),
	})

	matches, err := ix.Query(ctx, []float32{1, 0}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Errorf("got %d matches, want 2", len(matches))
	}
}

func TestQuery_Filters(t *testing.T) {
	ix := New(2)
	ctx := context.Background()
	_ = ix.Upsert(ctx, []index.Entry{
		entry("P1#A", []float32{1, 0}, index.Metadata{
			ProductID: "P1", Category: "Electronics", Price: 45, PriceBucket: 2, Rating: 4.5,
		}),
		entry("P2#A", []float32{1, 0}, index.Metadata{
			ProductID: "P2", Category: "Home", Price: 120, PriceBucket: 4, Rating: 3.2,
		}),
	})

	tests := []struct {
		name    string
		filters []index.Condition
		wantIDs []string
	}{
		{"category eq", []index.Condition{index.Eq("category", "Electronics")}, []string{"P1#A"}},
		{"price range", []index.Condition{index.Gte("price", 100), index.Lte("price", 200)}, []string{"P2#A"}},
		{"min rating", []index.Condition{index.Gte("rating", 4.0)}, []string{"P1#A"}},
		{"bucket eq", []index.Condition{index.EqNum("price_bucket", 4)}, []string{"P2#A"}},
		{"bucket in", []index.Condition{index.In("price_bucket", []int{2, 3})}, []string{"P1#A"}},
		{"conjunction excludes all", []index.Condition{
			index.Eq("category", "Electronics"), index.Gte("price", 100),
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := ix.Query(ctx, []float32{1, 0}, 10, tt.filters)
			if err != nil {
				t.Fatal(err)
			}
			if len(matches) != len(tt.wantIDs) {
				t.Fatalf("got %d matches, want %d", len(matches), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if matches[i].ID != id {
					t.Errorf("match %d = %s, want %s", i, matches[i].ID, id)
				}
			}
		})
	}
}

func TestClear(t *testing.T) {
	ix := New(2)
	ctx := context.Background()
	_ = ix.Upsert(ctx, []index.Entry{entry("a", []float32{1, 0}, index.Metadata{})})

	if err := ix.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	stats, _ := ix.Describe(ctx)
	if stats.TotalVectorCount != 0 {
		t.Errorf("count after clear = %d, want 0", stats.TotalVectorCount)
	}
}
