package ai

import (
	"errors"
	"time"

	"github.com/hrygo/leanmind/internal/profile"
)

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string  // cloudflare, openai, deepseek, ollama, mock
	Model       string  // @cf/meta/llama-3.1-8b-instruct
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 500
	Temperature float32 // zero leaves the provider default
	// Timeout is the HTTP client timeout. Callers also bound each call with a context deadline.
	Timeout time.Duration
}

// NewConfigFromProfile creates the LLM config from profile.
func NewConfigFromProfile(p *profile.Profile) *LLMConfig {
	return &LLMConfig{
		Provider:  p.AIProvider,
		Model:     p.AIModel,
		APIKey:    p.AIAPIKey,
		BaseURL:   p.AIBaseURL,
		MaxTokens: p.AIMaxTokens,
		Timeout:   p.CompletionTimeout,
	}
}

// Validate validates the configuration.
func (c *LLMConfig) Validate() error {
	if c.Provider == "" {
		return errors.New("LLM provider is required")
	}
	if c.Provider == "mock" {
		return nil
	}
	if c.Model == "" {
		return errors.New("LLM model is required")
	}
	if c.Provider != "ollama" && c.APIKey == "" {
		return errors.New("LLM API key is required")
	}
	if c.Provider == "cloudflare" && c.BaseURL == "" {
		return errors.New("cloudflare account id or base URL is required")
	}
	return nil
}
