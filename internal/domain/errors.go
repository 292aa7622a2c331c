package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCatalogUnavailable signals a missing or corrupt catalog snapshot.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrIndexQuery signals a vector index query failure.
	ErrIndexQuery = errors.New("index query failed")
	// ErrIndexWrite signals a vector index upsert failure.
	ErrIndexWrite = errors.New("index write failed")
	// ErrInvalidRequest signals a request that failed validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrClassifier signals an intent classifier failure.
	ErrClassifier = errors.New("classifier error")
	// ErrCaptioner signals an image captioner failure.
	ErrCaptioner = errors.New("captioner error")
)

// IndexWriteError wraps ErrIndexWrite with which batch failed and how many
// entries committed before the abort. Committed batches are not rolled back.
type IndexWriteError struct {
	Batch     int
	Succeeded int
	Err       error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("%s: batch %d (%d entries committed): %v",
		ErrIndexWrite.Error(), e.Batch, e.Succeeded, e.Err)
}

func (e *IndexWriteError) Unwrap() error { return ErrIndexWrite }

// NewIndexWriteError creates an index write error for a failed upsert batch.
func NewIndexWriteError(batch, succeeded int, err error) error {
	return &IndexWriteError{Batch: batch, Succeeded: succeeded, Err: err}
}

// Retriable reports whether an error is worth retrying by the caller.
// Provider and index errors are transient; validation errors are not.
func Retriable(err error) bool {
	return errors.Is(err, ErrEmbeddingProvider) ||
		errors.Is(err, ErrIndexQuery) ||
		errors.Is(err, ErrClassifier) ||
		errors.Is(err, ErrCaptioner)
}
