package agents

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/tradelens/tradelens/internal/config"
)

const defaultMaxTokens = 2000

// NewChatModel builds the chat model for the configured LLM provider.
func NewChatModel(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error) {
	apiKey := cfg.LLMAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured for llm provider %q", cfg.LLMProvider)
	}

	switch cfg.LLMProvider {
	case "openai":
		mc := &openai.ChatModelConfig{
			APIKey: apiKey,
			Model:  cfg.LLMModel,
		}
		if cfg.BackendURL != "" {
			mc.BaseURL = cfg.BackendURL
		}
		return openai.NewChatModel(ctx, mc)
	case "deepseek":
		mc := &deepseek.ChatModelConfig{
			APIKey:    apiKey,
			Model:     cfg.LLMModel,
			MaxTokens: defaultMaxTokens,
		}
		if cfg.BackendURL != "" {
			mc.BaseURL = cfg.BackendURL
		}
		return deepseek.NewChatModel(ctx, mc)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}
