package agent

import (
	"context"

	"github.com/cartly-ai/shopsearch/internal/domain"
)

// Classifier is the external intent classifier. It must emit the structured
// directive for every message; free-form outputs are its problem to shape.
type Classifier interface {
	Classify(ctx context.Context, message string, hasImage bool, imageCaption string) (domain.ClassifierDirective, error)
}

// Captioner describes a product image as labeled prose (see ParseCaption).
type Captioner interface {
	Caption(ctx context.Context, image []byte) (string, error)
}

// Responder generates the conversational reply around retrieved products.
// Optional: without one the agent falls back to plain count messages.
type Responder interface {
	Recommend(ctx context.Context, userQuery, productsContext string) (string, error)
}
