package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cartly-ai/shopsearch/internal/agent"
	"github.com/cartly-ai/shopsearch/internal/domain"
)

// Compile-time check: Classifier implements agent.Classifier.
var _ agent.Classifier = (*Classifier)(nil)

const classifierSystemPrompt = `You are the intent router for a shopping assistant.
Given the user message, whether an image is attached, and the image description
if any, respond with a JSON object:
{
  "intent": "GENERAL_CONVERSATION" | "PRODUCT_SEARCH" | "IMAGE_SEARCH",
  "refined_query": "short search query, only for search intents",
  "reply": "direct answer, only for GENERAL_CONVERSATION",
  "category": "product category hint or empty",
  "min_price": number or null,
  "max_price": number or null,
  "min_rating": number or null
}
Use IMAGE_SEARCH only when an image is attached. Respond with JSON only.`

// Classifier routes user messages to intents via a chat completion.
type Classifier struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewClassifier creates an intent classifier.
func NewClassifier(cfg *Config) *Classifier {
	client, logger := newClient(cfg)
	return &Classifier{client: client, model: cfg.Model, logger: logger}
}

// directivePayload is the JSON shape the model emits.
type directivePayload struct {
	Intent       string   `json:"intent"`
	RefinedQuery string   `json:"refined_query"`
	Reply        string   `json:"reply"`
	Category     string   `json:"category"`
	MinPrice     *float64 `json:"min_price"`
	MaxPrice     *float64 `json:"max_price"`
	MinRating    *float64 `json:"min_rating"`
}

// Classify implements agent.Classifier.
func (c *Classifier) Classify(ctx context.Context, message string, hasImage bool, imageCaption string) (domain.ClassifierDirective, error) {
	var user strings.Builder
	fmt.Fprintf(&user, "User message: %s\nHas image: %t\n", message, hasImage)
	if imageCaption != "" {
		fmt.Fprintf(&user, "Image description:\n%s\n", imageCaption)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return domain.ClassifierDirective{}, fmt.Errorf("%w: %v", domain.ErrClassifier, err)
	}
	if len(resp.Choices) == 0 {
		return domain.ClassifierDirective{}, fmt.Errorf("%w: empty completion", domain.ErrClassifier)
	}

	var payload directivePayload
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return domain.ClassifierDirective{}, fmt.Errorf("%w: parse directive: %v", domain.ErrClassifier, err)
	}

	directive := domain.ClassifierDirective{
		Intent:       domain.Intent(strings.ToUpper(strings.TrimSpace(payload.Intent))),
		RefinedQuery: strings.TrimSpace(payload.RefinedQuery),
		Reply:        strings.TrimSpace(payload.Reply),
		Category:     strings.TrimSpace(payload.Category),
		MinPrice:     payload.MinPrice,
		MaxPrice:     payload.MaxPrice,
		MinRating:    payload.MinRating,
	}
	if !directive.Intent.IsValid() {
		c.logger.Warn("unknown intent from classifier, treating as product search",
			zap.String("intent", payload.Intent))
		directive.Intent = domain.IntentProductSearch
	}
	return directive, nil
}
