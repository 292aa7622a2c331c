package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cartly-ai/shopsearch/internal/agent"
	"github.com/cartly-ai/shopsearch/internal/domain"
)

// Compile-time check: Captioner implements agent.Captioner.
var _ agent.Captioner = (*Captioner)(nil)

const captionPrompt = `Analyze this product image and extract key searchable attributes.

Provide ONLY the following information in a structured format:
- Product Type: (e.g., shirt, headphones, water bottle, etc.)
- Category: (e.g., clothing, electronics, home goods, etc.)
- Main Colors: (list 1-3 dominant colors)
- Key Features: (list 2-4 distinctive visual features)
- Material/Build: (if visible, e.g., cotton, plastic, metal, etc.)
- Brand/Logo: (if visible)
- Target Audience: (e.g., men, women, kids, unisex, etc.)

Be specific and concise. Focus on attributes that would help find similar
products in an e-commerce catalog.`

// Captioner describes product images via a vision chat completion. The output
// is labeled prose parsed downstream by agent.ParseCaption.
type Captioner struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewCaptioner creates an image captioner.
func NewCaptioner(cfg *Config) *Captioner {
	client, logger := newClient(cfg)
	return &Captioner{client: client, model: cfg.Model, logger: logger}
}

// Caption implements agent.Captioner.
func (c *Captioner) Caption(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty image", domain.ErrCaptioner)
	}

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: captionPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCaptioner, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", domain.ErrCaptioner)
	}

	caption := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("image captioned", zap.Int("bytes", len(image)))
	return caption, nil
}
