// Package redis implements the vector index contract on RediSearch via
// rueidis: hash storage, an HNSW cosine vector field, and tag/numeric
// pre-filters compiled from the shared condition grammar.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/cartly-ai/shopsearch/internal/index"
)

// Compile-time check: Store implements index.Index.
var _ index.Index = (*Store)(nil)

// Config holds connection and schema parameters.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string // defaults to "shopsearch"
	Dim       int
	HNSWM     int
	HNSWEFC   int
}

// Store is a RediSearch-backed vector index.
type Store struct {
	client rueidis.Client
	prefix string
	dim    int
	hnswM  int
	hnswEF int
}

// NewStore connects to Redis. Call EnsureSchema before the first Upsert.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.Dim <= 0 {
		return nil, fmt.Errorf("vector dimension is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "shopsearch"
	}

	return &Store{
		client: client,
		prefix: prefix,
		dim:    cfg.Dim,
		hnswM:  cfg.HNSWM,
		hnswEF: cfg.HNSWEFC,
	}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for index store: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

func (s *Store) indexName() string { return s.prefix + ":view:idx" }

func (s *Store) keyPrefix() string { return s.prefix + ":view:" }

func (s *Store) key(id string) string { return s.keyPrefix() + id }
