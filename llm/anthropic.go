package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/use-agent/fieldscout/models"
)

const defaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicClient is a Completer backed by the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicClient creates a client for the given key and model.
// An empty model or an OpenAI default selects the Haiku model.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	if model == "" || model == "gpt-4o-mini" {
		model = defaultAnthropicModel
	}
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// Complete sends one user message with the system prompt.
// The Messages API has no JSON mode; req.JSON is expressed in the prompt.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	system := req.System
	if req.JSON {
		system += "\nRespond with a single JSON object and nothing else."
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}
	if len(message.Content) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeLLMFailure, "LLM returned no content blocks", nil)
	}
	content := message.Content[0]
	if content.Type != "text" {
		return nil, models.NewScrapeError(models.ErrCodeLLMFailure, "LLM returned a non-text block: "+string(content.Type), nil)
	}

	in, out := int(message.Usage.InputTokens), int(message.Usage.OutputTokens)
	return &Completion{
		Text: content.Text,
		Usage: Usage{
			PromptTokens:     in,
			CompletionTokens: out,
			TotalTokens:      in + out,
		},
	}, nil
}

func classifyAnthropicError(err error) *models.ScrapeError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return models.NewScrapeError(models.ErrCodeLLMAuthFailure, "anthropic authentication failed", err)
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return models.NewScrapeError(models.ErrCodeLLMRateLimited, "anthropic rate limit", err)
		}
	}
	return models.NewScrapeError(models.ErrCodeLLMFailure, "LLM request failed", err)
}
