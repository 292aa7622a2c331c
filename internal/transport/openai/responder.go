package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cartly-ai/shopsearch/internal/agent"
	"github.com/cartly-ai/shopsearch/internal/domain"
)

// Compile-time check: Responder implements agent.Responder.
var _ agent.Responder = (*Responder)(nil)

const responderSystemPrompt = `You are a helpful shopping assistant. You are
given the user's request and a numbered list of retrieved products. Recommend
from that list only, briefly and concretely. Do not invent products.`

// Responder generates the conversational reply around retrieved products.
type Responder struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewResponder creates a response generator.
func NewResponder(cfg *Config) *Responder {
	client, logger := newClient(cfg)
	return &Responder{client: client, model: cfg.Model, logger: logger}
}

// Recommend implements agent.Responder.
func (r *Responder) Recommend(ctx context.Context, userQuery, productsContext string) (string, error) {
	user := fmt.Sprintf("User request: %s\n\nRetrieved products:\n%s", userQuery, productsContext)

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: responderSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrClassifier, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", domain.ErrClassifier)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
