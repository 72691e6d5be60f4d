// Package qa provides the extractive question-answering collaborator used as
// the last fallback of every field extractor.
package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/use-agent/fieldscout/config"
	"github.com/use-agent/fieldscout/llm"
	"github.com/use-agent/fieldscout/models"
)

// Answer is an extractive answer with its model confidence.
type Answer struct {
	Text  string  `json:"answer"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// Answerer answers a question from a context passage.
type Answerer interface {
	Answer(ctx context.Context, question, context string) (Answer, error)
}

// Nop never finds an answer.
type Nop struct{}

// Answer returns an empty answer with zero score.
func (Nop) Answer(context.Context, string, string) (Answer, error) { return Answer{}, nil }

// New builds the Answerer selected by cfg.Provider. The "llm" provider
// needs a non-nil completer; anything unusable yields Nop.
func New(cfg config.QAConfig, completer llm.Completer) Answerer {
	switch cfg.Provider {
	case "http":
		if cfg.Endpoint == "" {
			return Nop{}
		}
		return NewHTTPAnswerer(cfg.Endpoint, cfg.APIKey, cfg.MaxContextChars, &http.Client{Timeout: cfg.Timeout})
	case "llm":
		if completer == nil {
			return Nop{}
		}
		return &LLMAnswerer{LLM: completer, MaxContextChars: cfg.MaxContextChars}
	default:
		return Nop{}
	}
}

// HTTPAnswerer calls a HuggingFace-style question-answering inference
// endpoint (e.g. distilbert-base-cased-distilled-squad).
type HTTPAnswerer struct {
	endpoint        string
	apiKey          string
	maxContextChars int
	httpClient      *http.Client
}

// NewHTTPAnswerer creates an answerer for endpoint. Pass a nil client to use
// a default one.
func NewHTTPAnswerer(endpoint, apiKey string, maxContextChars int, httpClient *http.Client) *HTTPAnswerer {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPAnswerer{
		endpoint:        endpoint,
		apiKey:          apiKey,
		maxContextChars: maxContextChars,
		httpClient:      httpClient,
	}
}

type inferenceRequest struct {
	Inputs struct {
		Question string `json:"question"`
		Context  string `json:"context"`
	} `json:"inputs"`
}

// Answer posts the question and context and decodes the top answer. The
// endpoint may return either one object or a ranked array.
func (a *HTTPAnswerer) Answer(ctx context.Context, question, passage string) (Answer, error) {
	var reqBody inferenceRequest
	reqBody.Inputs.Question = question
	reqBody.Inputs.Context = truncate(passage, a.maxContextChars)

	body, err := json.Marshal(reqBody)
	if err != nil {
		return Answer{}, fmt.Errorf("marshal qa request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return Answer{}, fmt.Errorf("create qa request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Answer{}, models.NewScrapeError(models.ErrCodeQAFailure, "qa request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Answer{}, models.NewScrapeError(models.ErrCodeQAFailure, "failed to read qa response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Answer{}, models.NewScrapeError(models.ErrCodeQAFailure,
			fmt.Sprintf("qa endpoint returned %d: %s", resp.StatusCode, truncate(string(respBody), 200)), nil)
	}

	trimmed := bytes.TrimSpace(respBody)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var ranked []Answer
		if err := json.Unmarshal(trimmed, &ranked); err != nil {
			return Answer{}, models.NewScrapeError(models.ErrCodeQAFailure, "failed to parse qa response", err)
		}
		if len(ranked) == 0 {
			return Answer{}, nil
		}
		return ranked[0], nil
	}

	var ans Answer
	if err := json.Unmarshal(trimmed, &ans); err != nil {
		return Answer{}, models.NewScrapeError(models.ErrCodeQAFailure, "failed to parse qa response", err)
	}
	return ans, nil
}

const llmSystemPrompt = `You answer questions by quoting a short span copied verbatim from the given context.
Reply with JSON: {"answer": "<span or empty string>", "score": <confidence between 0 and 1>}.
If the context does not contain the answer, reply {"answer": "", "score": 0}.`

// LLMAnswerer answers with a chat model instructed to quote the context.
// Answers that do not appear in the context get a zero score.
type LLMAnswerer struct {
	LLM             llm.Completer
	MaxContextChars int
}

// Answer asks the model and validates that the span is extractive.
func (a *LLMAnswerer) Answer(ctx context.Context, question, passage string) (Answer, error) {
	passage = truncate(passage, a.MaxContextChars)
	resp, err := a.LLM.Complete(ctx, llm.CompletionRequest{
		System:    llmSystemPrompt,
		User:      "Context:\n" + passage + "\n\nQuestion: " + question,
		JSON:      true,
		MaxTokens: 256,
	})
	if err != nil {
		return Answer{}, err
	}

	repaired, err := jsonrepair.JSONRepair(resp.Text)
	if err != nil {
		return Answer{}, models.NewScrapeError(models.ErrCodeQAFailure, "unparseable qa answer", err)
	}
	var ans Answer
	if err := json.Unmarshal([]byte(repaired), &ans); err != nil {
		return Answer{}, models.NewScrapeError(models.ErrCodeQAFailure, "unparseable qa answer", err)
	}

	ans.Text = strings.TrimSpace(ans.Text)
	idx := strings.Index(passage, ans.Text)
	if ans.Text == "" || idx < 0 {
		return Answer{}, nil
	}
	ans.Start, ans.End = idx, idx+len(ans.Text)
	return ans, nil
}

// truncate cuts s to at most max bytes on a rune boundary. max <= 0 means
// no limit.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !isRuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
