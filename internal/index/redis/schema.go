package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// EnsureSchema creates the view index if it does not exist yet. The schema is
// fixed: one vector field plus the filterable metadata fields every view
// carries.
func (s *Store) EnsureSchema(ctx context.Context) error {
	exists, err := s.schemaExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	args := []string{
		s.indexName(),
		"ON", "HASH",
		"PREFIX", "1", s.keyPrefix(),
		"SCHEMA",
		"product_id", "TAG",
		"view_tag", "TAG",
		"category", "TAG",
		"store", "TAG",
		"price", "NUMERIC",
		"price_bucket", "NUMERIC",
		"rating", "NUMERIC",
		"rating_count", "NUMERIC",
	}
	args = append(args, s.vectorFieldArgs()...)

	cmd := s.client.B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return fmt.Errorf("create index %s: %w", s.indexName(), err)
	}
	return nil
}

func (s *Store) vectorFieldArgs() []string {
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.dim),
		"DISTANCE_METRIC", "COSINE",
	}
	if s.hnswM > 0 {
		attrs = append(attrs, "M", strconv.Itoa(s.hnswM))
	}
	if s.hnswEF > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(s.hnswEF))
	}

	args := []string{"vector", "VECTOR", "HNSW", strconv.Itoa(len(attrs))}
	return append(args, attrs...)
}

// schemaExists probes via FT.INFO; "unknown index name" means absent.
func (s *Store) schemaExists(ctx context.Context) (bool, error) {
	cmd := s.client.B().Arbitrary("FT.INFO").Args(s.indexName()).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, fmt.Errorf("index info: %w", err)
	}
	return true, nil
}

func isRedisErr(err error, substr string) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), substr)
}
