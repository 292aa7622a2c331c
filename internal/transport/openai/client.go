// Package openai implements the external LLM collaborators (intent
// classifier, image captioner, response generator) as thin adapters over an
// OpenAI-compatible chat API.
package openai

import (
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds the chat provider settings shared by all adapters.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

func newClient(cfg *Config) (*openai.Client, *zap.Logger) {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return openai.NewClientWithConfig(clientCfg), logger
}
