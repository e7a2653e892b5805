// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"fmt"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// NewChatProvider builds the chat provider selected by cfg.Provider.
func NewChatProvider(cfg types.AIConfig, opts Options) (ChatProvider, error) {
	switch cfg.Provider {
	case types.ProviderAnthropic, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key (chat.api_key or .secrets/anthropic-api-key)")
		}
		return &ClaudeProvider{APIKey: cfg.APIKey, Model: cfg.Model, MaxTokens: cfg.MaxTokens, Options: opts}, nil
	case types.ProviderOpenAI:
		return &OpenAIProvider{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, MaxTokens: cfg.MaxTokens, Options: opts}, nil
	default:
		return nil, fmt.Errorf("unsupported chat provider %q: use anthropic or openai", cfg.Provider)
	}
}

// NewEmbedder builds the OpenAI-compatible embedding client.
func NewEmbedder(cfg types.EmbeddingConfig, opts Options) *OpenAIEmbedder {
	return &OpenAIEmbedder{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, Options: opts}
}
