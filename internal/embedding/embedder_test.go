package embedding

import (
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cartly-ai/shopsearch/internal/domain"
)

func TestNewClient_DefaultDimensions(t *testing.T) {
	c := NewClient(&Config{APIKey: "k", Model: "test-model"})
	if c.Dimensions() != DefaultDimensions {
		t.Errorf("dimensions = %d, want %d", c.Dimensions(), DefaultDimensions)
	}

	c = NewClient(&Config{APIKey: "k", Model: "test-model", Dimensions: 1536})
	if c.Dimensions() != 1536 {
		t.Errorf("dimensions = %d, want 1536", c.Dimensions())
	}
}

func TestParseAPIError_RequestError(t *testing.T) {
	src := &openai.RequestError{
		HTTPStatusCode: 503,
		Body:           []byte(`{"detail": "model overloaded"}`),
		Err:            errors.New("service unavailable"),
	}
	err := parseAPIError(src)

	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Error("expected ErrEmbeddingProvider wrapping")
	}
	if got := err.Error(); !strings.Contains(got, "503") || !strings.Contains(got, "model overloaded") {
		t.Errorf("unexpected message: %s", got)
	}
}

func TestParseAPIError_APIError(t *testing.T) {
	src := &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}
	err := parseAPIError(src)

	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Error("expected ErrEmbeddingProvider wrapping")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestParseAPIError_Opaque(t *testing.T) {
	err := parseAPIError(errors.New("dial tcp: connection refused"))
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Error("expected ErrEmbeddingProvider wrapping")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("underlying cause lost from message: %s", err.Error())
	}
	if !domain.Retriable(err) {
		t.Error("provider errors should be retriable")
	}
}
