package qa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/use-agent/fieldscout/config"
	"github.com/use-agent/fieldscout/llm"
	"github.com/use-agent/fieldscout/models"
)

func TestHTTPAnswerer(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Answer
	}{
		{"object", `{"answer":"22 33 44 55","score":0.91,"start":4,"end":15}`, Answer{Text: "22 33 44 55", Score: 0.91, Start: 4, End: 15}},
		{"ranked array", `[{"answer":"Tunis","score":0.7},{"answer":"Sfax","score":0.2}]`, Answer{Text: "Tunis", Score: 0.7}},
		{"empty array", `[]`, Answer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got inferenceRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer hf" {
					t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
				}
				json.NewDecoder(r.Body).Decode(&got)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			a := NewHTTPAnswerer(srv.URL, "hf", 10, nil)
			ans, err := a.Answer(context.Background(), "What is the phone?", "Tel: 22 33 44 55 and more text")
			if err != nil {
				t.Fatalf("Answer: %v", err)
			}
			if ans != tt.want {
				t.Errorf("Answer = %+v, want %+v", ans, tt.want)
			}
			if got.Inputs.Context != "Tel: 22 33" {
				t.Errorf("context = %q, want truncated to 10 bytes", got.Inputs.Context)
			}
		})
	}
}

func TestHTTPAnswerer_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPAnswerer(srv.URL, "", 0, nil).Answer(context.Background(), "q", "c")
	if se := models.AsScrapeError(err); se == nil || se.Code != models.ErrCodeQAFailure {
		t.Errorf("err = %v, want QA_FAILURE", err)
	}
}

type fakeCompleter struct {
	text string
	err  error
}

func (f fakeCompleter) Complete(context.Context, llm.CompletionRequest) (*llm.Completion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Completion{Text: f.text}, nil
}

func TestLLMAnswerer(t *testing.T) {
	passage := "Acme Corp, 12 rue de Marseille, Tunis. Tel 71 000 000"
	tests := []struct {
		name  string
		reply string
		want  Answer
	}{
		{"span in context", `{"answer": "71 000 000", "score": 0.8}`, Answer{Text: "71 000 000", Score: 0.8, Start: 43, End: 53}},
		{"repaired json", `{answer: '12 rue de Marseille', score: 0.6`, Answer{Text: "12 rue de Marseille", Score: 0.6, Start: 11, End: 30}},
		{"not extractive", `{"answer": "Paris", "score": 0.9}`, Answer{}},
		{"empty", `{"answer": "", "score": 0}`, Answer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &LLMAnswerer{LLM: fakeCompleter{text: tt.reply}}
			got, err := a.Answer(context.Background(), "q", passage)
			if err != nil {
				t.Fatalf("Answer: %v", err)
			}
			if got != tt.want {
				t.Errorf("Answer = %+v, want %+v", got, tt.want)
			}
		})
	}

	a := &LLMAnswerer{LLM: fakeCompleter{err: errors.New("down")}}
	if _, err := a.Answer(context.Background(), "q", passage); err == nil {
		t.Error("expected completer error to propagate")
	}
}

func TestNew(t *testing.T) {
	if _, ok := New(config.QAConfig{Provider: "http", Endpoint: "http://x"}, nil).(*HTTPAnswerer); !ok {
		t.Error("http provider should build HTTPAnswerer")
	}
	if _, ok := New(config.QAConfig{Provider: "http"}, nil).(Nop); !ok {
		t.Error("http provider without endpoint should be Nop")
	}
	if _, ok := New(config.QAConfig{Provider: "llm"}, fakeCompleter{}).(*LLMAnswerer); !ok {
		t.Error("llm provider should build LLMAnswerer")
	}
	if _, ok := New(config.QAConfig{Provider: "llm"}, nil).(Nop); !ok {
		t.Error("llm provider without completer should be Nop")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 2); got != "h" {
		t.Errorf("truncate mid-rune = %q, want %q", got, "h")
	}
	if got := truncate("hello", 0); got != "hello" {
		t.Errorf("truncate unlimited = %q", got)
	}
}
