package main

import (
	"fmt"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/answer-engine/internal/secrets"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// optionalKeys are omitted from the marshalled defaults, so they are bound
// explicitly to make environment overrides visible to Unmarshal.
var optionalKeys = []string{
	"chat.api_key",
	"chat.base_url",
	"embedding.api_key",
	"embedding.base_url",
	"research.tavily_api_key",
	"research.tiers_file",
}

// registerDefaults seeds v with every key of the default pipeline config.
func registerDefaults(v *viper.Viper, cfg types.PipelineConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("decoding default config: %w", err)
	}
	for k, val := range tree {
		v.SetDefault(k, val)
	}
	for _, k := range optionalKeys {
		if err := v.BindEnv(k); err != nil {
			return fmt.Errorf("binding %s: %w", k, err)
		}
	}
	return nil
}

// loadPipelineConfig layers the config file and ANSWER_ENGINE_* variables
// over the defaults, then fills unset API keys from the secrets directory.
func loadPipelineConfig(v *viper.Viper, s secrets.Secrets) (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()
	if err := registerDefaults(v, cfg); err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	chatKey := secrets.AnthropicAPIKey
	if cfg.Chat.Provider == types.ProviderOpenAI {
		chatKey = secrets.OpenAIAPIKey
	}
	cfg.Chat.APIKey = s.Fill(cfg.Chat.APIKey, chatKey)
	cfg.Embedding.APIKey = s.Fill(cfg.Embedding.APIKey, secrets.OpenAIAPIKey)
	cfg.Research.TavilyAPIKey = s.Fill(cfg.Research.TavilyAPIKey, secrets.TavilyAPIKey)
	return cfg, nil
}
