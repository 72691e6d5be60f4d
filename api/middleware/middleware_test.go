package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/fieldscout/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(apiKeyContextKey)) })
	return r
}

func get(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newRouter(Auth([]string{"k1", " k2 "}))
	tests := []struct {
		name    string
		headers map[string]string
		want    int
		body    string
	}{
		{"x-api-key", map[string]string{"X-API-Key": "k1"}, http.StatusOK, "k1"},
		{"bearer", map[string]string{"Authorization": "Bearer k2"}, http.StatusOK, "k2"},
		{"missing", nil, http.StatusUnauthorized, ""},
		{"invalid", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized, ""},
		{"basic scheme", map[string]string{"Authorization": "Basic k1"}, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.headers)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && w.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.body)
			}
		})
	}

	if w := get(newRouter(Auth(nil)), nil); w.Code != http.StatusOK {
		t.Errorf("no keys configured: status = %d, want open access", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	r := newRouter(Auth([]string{"a", "b"}), RateLimit(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))

	for i := 0; i < 2; i++ {
		if w := get(r, map[string]string{"X-API-Key": "a"}); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	if w := get(r, map[string]string{"X-API-Key": "a"}); w.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", w.Code)
	}
	if w := get(r, map[string]string{"X-API-Key": "b"}); w.Code != http.StatusOK {
		t.Errorf("other key status = %d, want its own bucket", w.Code)
	}
}

func TestLimiters_EvictIdle(t *testing.T) {
	l := newLimiters(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	l.get("a")
	l.evictIdle(time.Now().Add(time.Minute))
	if len(l.entries) != 0 {
		t.Errorf("entries = %d, want 0", len(l.entries))
	}
}
