package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/fieldscout/models"
)

func TestIsAdDomain(t *testing.T) {
	tests := map[string]bool{
		"doubleclick.net":               true,
		"pagead2.googlesyndication.com": true,
		"WWW.GOOGLE-ANALYTICS.COM":      true,
		"example.org":                   false,
		"notdoubleclick.net":            false,
		"":                              false,
	}
	for host, want := range tests {
		if got := isAdDomain(host); got != want {
			t.Errorf("isAdDomain(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestResourceFilter(t *testing.T) {
	f := newResourceFilter([]string{"Media", "Bogus"}, true)
	if f.empty() {
		t.Fatal("filter should not be empty")
	}
	tests := []struct {
		rt   proto.NetworkResourceType
		url  string
		want bool
	}{
		{proto.NetworkResourceTypeMedia, "https://example.org/video.mp4", true},
		{proto.NetworkResourceTypeImage, "https://example.org/logo.png", false},
		{proto.NetworkResourceTypeScript, "https://www.googletagmanager.com/gtm.js", true},
		{proto.NetworkResourceTypeDocument, "https://example.org/", false},
	}
	for _, tt := range tests {
		if got := f.blocks(tt.rt, tt.url); got != tt.want {
			t.Errorf("blocks(%s, %s) = %v, want %v", tt.rt, tt.url, got, tt.want)
		}
	}

	if !newResourceFilter(nil, false).empty() {
		t.Error("filter without types or ads should be empty")
	}
}

func TestCategorizeError(t *testing.T) {
	if got := categorizeError(context.DeadlineExceeded, "x"); got.Code != models.ErrCodeTimeout {
		t.Errorf("deadline code = %s", got.Code)
	}
	if got := categorizeError(errors.New("net::ERR_NAME_NOT_RESOLVED"), "x"); got.Code != models.ErrCodeNavigation {
		t.Errorf("navigation code = %s", got.Code)
	}
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepCtx on canceled ctx = %v", err)
	}
	if err := sleepCtx(context.Background(), 0); err != nil {
		t.Errorf("sleepCtx(0) = %v", err)
	}
}
