// Package nlp provides named-entity models used to recognise organisation
// names among page anchors, one model per language family.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// LabelOrg marks an organisation entity.
const LabelOrg = "ORG"

// Entity is a labelled span of text.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Model recognises entities in a short text.
type Model interface {
	Entities(ctx context.Context, text string) ([]Entity, error)
}

// HasOrg reports whether m labels any part of text as an organisation.
// Model errors count as no match.
func HasOrg(ctx context.Context, m Model, text string) bool {
	if m == nil {
		return false
	}
	ents, err := m.Entities(ctx, text)
	if err != nil {
		slog.Debug("entity model failed", "text", text, "error", err)
		return false
	}
	for _, e := range ents {
		if e.Label == LabelOrg {
			return true
		}
	}
	return false
}

// ModelKey maps a language code to the model family serving it.
func ModelKey(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	switch {
	case strings.HasPrefix(lang, "fr"):
		return "fr"
	case strings.HasPrefix(lang, "ar"):
		return "ar"
	case strings.HasPrefix(lang, "en"):
		return "en"
	default:
		return "multi"
	}
}

// Loader builds the model for a family key.
type Loader func(key string) (Model, error)

// Cache holds one model per family, loaded on first use and kept for the
// life of the cache. It is safe for concurrent use.
type Cache struct {
	load Loader

	mu     sync.Mutex
	models map[string]Model
}

// NewCache creates a cache backed by load.
func NewCache(load Loader) *Cache {
	return &Cache{load: load, models: make(map[string]Model)}
}

// Get returns the model for lang, loading it on a miss. A failed load
// falls back to the built-in gazetteer for that family.
func (c *Cache) Get(lang string) Model {
	key := ModelKey(lang)

	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.models[key]; ok {
		return m
	}
	m, err := c.load(key)
	if err != nil || m == nil {
		slog.Warn("entity model unavailable, using gazetteer", "model", key, "error", err)
		m = NewGazetteer(key)
	}
	c.models[key] = m
	return m
}

// Loaded returns the family keys loaded so far.
func (c *Cache) Loaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.models))
	for k := range c.models {
		keys = append(keys, k)
	}
	return keys
}

// GazetteerLoader serves every family from the built-in gazetteer.
func GazetteerLoader(key string) (Model, error) {
	return NewGazetteer(key), nil
}

// HTTPLoader returns a loader serving every family from a remote NER
// service at url.
func HTTPLoader(url string, timeout time.Duration) Loader {
	client := &http.Client{Timeout: timeout}
	return func(key string) (Model, error) {
		if url == "" {
			return nil, fmt.Errorf("no NER endpoint configured")
		}
		return &HTTPModel{URL: url, Lang: key, Client: client}, nil
	}
}

// HTTPModel calls a remote NER service that accepts {"text", "lang"} and
// returns {"entities": [{"text", "label"}]}.
type HTTPModel struct {
	URL    string
	Lang   string
	Client *http.Client
}

type nerRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

type nerResponse struct {
	Entities []Entity `json:"entities"`
}

// Entities posts text to the service.
func (m *HTTPModel) Entities(ctx context.Context, text string) ([]Entity, error) {
	body, err := json.Marshal(nerRequest{Text: text, Lang: m.Lang})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create ner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ner request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ner service returned %d: %s", resp.StatusCode, msg)
	}
	var out nerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ner response: %w", err)
	}
	return out.Entities, nil
}
