package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/tempora/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - return nil (LLM disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config. A missing API key
// is read from OPENAI_API_KEY or ANTHROPIC_API_KEY, proxies from the usual
// environment variables.
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	config := Config{
		Provider:   modelConfig.Provider,
		Model:      modelConfig.Model,
		APIKey:     modelConfig.APIKey,
		BaseURL:    modelConfig.BaseURL,
		Timeout:    modelConfig.Timeout,
		MaxTokens:  modelConfig.MaxTokens,
		HTTPProxy:  os.Getenv("HTTP_PROXY"),
		HTTPSProxy: os.Getenv("HTTPS_PROXY"),
		NoProxy:    os.Getenv("NO_PROXY"),
	}

	if config.APIKey == "" {
		switch strings.ToLower(config.Provider) {
		case "openai":
			config.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	return config
}
