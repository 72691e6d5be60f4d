package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSend_SignsAndRetries(t *testing.T) {
	var attempts atomic.Int32
	var gotSig string
	var gotEvent Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		if gotSig != Sign("s3cret", body) {
			t.Errorf("signature %q does not match body", gotSig)
		}
		json.Unmarshal(body, &gotEvent)
	}))
	defer srv.Close()

	s := &Sender{Delays: []time.Duration{0, time.Millisecond}}
	ok := s.Send(srv.URL, "s3cret", &Event{Type: EventScrapeCompleted, JobID: "job-1", Timestamp: 1})
	if !ok {
		t.Fatal("Send reported failure")
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
	if gotEvent.Type != EventScrapeCompleted || gotEvent.JobID != "job-1" {
		t.Errorf("event = %+v", gotEvent)
	}
}

func TestSend_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(SignatureHeader) != "" {
			t.Error("unsigned delivery expected without a secret")
		}
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	s := &Sender{Delays: []time.Duration{0, time.Millisecond}}
	if s.Send(srv.URL, "", &Event{Type: EventScrapeFailed}) {
		t.Error("Send reported success against a failing endpoint")
	}
}

func TestSign(t *testing.T) {
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	want := "sha256=f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"
	if got := Sign("key", []byte("The quick brown fox jumps over the lazy dog")); got != want {
		t.Errorf("Sign = %s, want %s", got, want)
	}
}
