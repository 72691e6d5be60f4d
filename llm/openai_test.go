package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/use-agent/fieldscout/config"
	"github.com/use-agent/fieldscout/models"
)

func TestClient_Complete(t *testing.T) {
	var got chatRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"fields\":{}}"}}],"usage":{"total_tokens":12}}`))
	}))
	defer srv.Close()

	c := NewClient(nil, Params{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"})
	resp, err := c.Complete(context.Background(), CompletionRequest{System: "sys", User: "usr", JSON: true})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != `{"fields":{}}` {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 12 {
		t.Errorf("TotalTokens = %d, want 12", resp.Usage.TotalTokens)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want default", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "usr" {
		t.Errorf("Messages = %+v", got.Messages)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("ResponseFormat = %+v, want json_object", got.ResponseFormat)
	}
}

func TestClient_CompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, models.ErrCodeLLMAuthFailure},
		{"rate limited", http.StatusTooManyRequests, `{}`, models.ErrCodeLLMRateLimited},
		{"server error", http.StatusInternalServerError, `oops`, models.ErrCodeLLMFailure},
		{"no choices", http.StatusOK, `{"choices":[]}`, models.ErrCodeLLMFailure},
		{"bad json", http.StatusOK, `{`, models.ErrCodeLLMFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(nil, Params{BaseURL: srv.URL}).Complete(context.Background(), CompletionRequest{User: "x"})
			se := models.AsScrapeError(err)
			if se == nil || se.Code != tt.code {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LLMConfig
		wantNil bool
		wantErr bool
	}{
		{"disabled", config.LLMConfig{}, true, false},
		{"no key", config.LLMConfig{Provider: "openai"}, true, false},
		{"openai", config.LLMConfig{Provider: "openai", APIKey: "k"}, false, false},
		{"anthropic", config.LLMConfig{Provider: "anthropic", APIKey: "k"}, false, false},
		{"unknown", config.LLMConfig{Provider: "bard", APIKey: "k"}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if (c == nil) != tt.wantNil {
				t.Errorf("completer = %v, wantNil %v", c, tt.wantNil)
			}
		})
	}
}
