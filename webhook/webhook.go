// Package webhook notifies callers when a background crawl finishes.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event types.
const (
	EventScrapeCompleted = "scrape.completed"
	EventScrapeFailed    = "scrape.failed"
)

// SignatureHeader carries "sha256=<hex HMAC of the body>" when a secret is set.
const SignatureHeader = "X-Fieldscout-Signature"

// Event is the JSON body posted to the webhook URL.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Sender delivers events. The zero value is usable.
type Sender struct {
	Client *http.Client

	// Delays are the waits before each attempt; the first is usually 0.
	Delays []time.Duration
}

var defaultDelays = []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver posts event once.
func (s *Sender) Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Fieldscout-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Send delivers event, retrying on failure, and reports whether any
// attempt succeeded. It blocks; run it in a goroutine from handlers.
func (s *Sender) Send(url, secret string, event *Event) bool {
	delays := s.Delays
	if len(delays) == 0 {
		delays = defaultDelays
	}
	for attempt, delay := range delays {
		if delay > 0 {
			time.Sleep(delay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := s.Deliver(ctx, url, secret, event)
		cancel()
		if err == nil {
			slog.Info("webhook delivered", "url", url, "event", event.Type, "job_id", event.JobID, "attempt", attempt+1)
			return true
		}
		slog.Warn("webhook delivery failed", "url", url, "event", event.Type, "job_id", event.JobID, "attempt", attempt+1, "error", err)
	}
	slog.Error("webhook delivery exhausted all retries", "url", url, "event", event.Type, "job_id", event.JobID)
	return false
}
