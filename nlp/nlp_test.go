package nlp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"
)

func TestModelKey(t *testing.T) {
	tests := map[string]string{
		"fr-FR": "fr",
		"FR":    "fr",
		"ar":    "ar",
		"en-us": "en",
		"de":    "multi",
		"":      "multi",
	}
	for in, want := range tests {
		if got := ModelKey(in); got != want {
			t.Errorf("ModelKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCache_LoadsOncePerFamily(t *testing.T) {
	calls := map[string]int{}
	c := NewCache(func(key string) (Model, error) {
		calls[key]++
		return NewGazetteer(key), nil
	})

	c.Get("fr")
	c.Get("fr-CA")
	c.Get("en")
	c.Get("de")
	c.Get("es")

	if calls["fr"] != 1 || calls["en"] != 1 || calls["multi"] != 1 {
		t.Errorf("loader calls = %v, want one per family", calls)
	}
	loaded := c.Loaded()
	sort.Strings(loaded)
	if len(loaded) != 3 {
		t.Errorf("Loaded() = %v", loaded)
	}
}

func TestCache_FallsBackToGazetteer(t *testing.T) {
	c := NewCache(func(string) (Model, error) { return nil, errors.New("model missing") })
	if !HasOrg(context.Background(), c.Get("fr"), "Association Les Amis") {
		t.Error("expected gazetteer fallback to recognise an association")
	}
}

func TestGazetteer(t *testing.T) {
	tests := []struct {
		key  string
		text string
		want bool
	}{
		{"en", "Acme Corp", true},
		{"en", "Read more", false},
		{"fr", "Société Générale", true},
		{"fr", "En savoir plus", false},
		{"ar", "جمعية الأمل", true},
		{"multi", "Club Africain", true},
	}
	for _, tt := range tests {
		if got := HasOrg(context.Background(), NewGazetteer(tt.key), tt.text); got != tt.want {
			t.Errorf("HasOrg(%s, %q) = %v, want %v", tt.key, tt.text, got, tt.want)
		}
	}
}

func TestHTTPModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req nerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Lang != "fr" {
			http.Error(w, "unexpected lang", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(nerResponse{Entities: []Entity{{Text: req.Text, Label: "ORG"}}})
	}))
	defer srv.Close()

	c := NewCache(HTTPLoader(srv.URL, time.Second))
	if !HasOrg(context.Background(), c.Get("fr"), "Les Amis du Livre") {
		t.Error("expected remote ORG entity")
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	m := &HTTPModel{URL: failing.URL, Lang: "en"}
	if _, err := m.Entities(context.Background(), "x"); err == nil {
		t.Error("expected error from failing service")
	}
	if HasOrg(context.Background(), m, "Acme Corp") {
		t.Error("model errors must count as no match")
	}
}
