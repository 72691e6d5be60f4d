// Package llm holds the chat-completion clients used to interpret prompts
// and, optionally, to answer extraction questions.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/use-agent/fieldscout/config"
)

// Completer is a single-turn chat completion backend.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// CompletionRequest is one system + user exchange.
type CompletionRequest struct {
	System    string
	User      string
	JSON      bool // ask the provider for a JSON object response
	MaxTokens int
}

// Completion is the provider's answer.
type Completion struct {
	Text  string
	Usage Usage
}

// Usage reports token consumption from the call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// New builds the Completer selected by cfg.Provider. It returns nil, nil
// when no provider is configured.
func New(cfg config.LLMConfig) (Completer, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	switch cfg.Provider {
	case "openai":
		return NewClient(&http.Client{Timeout: cfg.Timeout}, Params{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}), nil
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
