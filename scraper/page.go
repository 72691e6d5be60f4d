package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/fieldscout/models"
)

// captureMode selects what a render returns besides the markup.
type captureMode int

const (
	captureNone     captureMode = iota // markup only
	captureViewport                    // markup + viewport screenshot
	captureFullPage                    // markup + full-page screenshot
)

// Render loads pageURL and returns its markup, visible text and a viewport
// screenshot written to a temp file. The caller owns the screenshot file.
// A failed screenshot leaves ScreenshotPath empty without failing the
// render.
func (s *Scraper) Render(ctx context.Context, pageURL string) (*models.Snapshot, error) {
	return s.render(ctx, pageURL, captureViewport)
}

// FullPageScreenshot loads pageURL and returns the path of a screenshot of
// the whole scrollable page.
func (s *Scraper) FullPageScreenshot(ctx context.Context, pageURL string) (string, error) {
	snap, err := s.render(ctx, pageURL, captureFullPage)
	if err != nil {
		return "", err
	}
	if snap.ScreenshotPath == "" {
		return "", models.NewScrapeError(models.ErrCodeNavigation, "screenshot capture failed", nil)
	}
	return snap.ScreenshotPath, nil
}

// FetchHTML loads pageURL and returns its rendered markup and title only.
func (s *Scraper) FetchHTML(ctx context.Context, pageURL string) (*models.Snapshot, error) {
	return s.render(ctx, pageURL, captureNone)
}

// render is the shared page lifecycle:
//
//  1. Timeout guard     hard deadline on the whole render
//  2. Acquire page      borrow a tab from the pool
//  3. Defer cleanup     about:blank + return to pool
//  4. Stealth, viewport and headers, before navigation
//  5. Resource filter   before navigation
//  6. Navigate and wait for load, then DOM stability
//  7. Scroll to the bottom so lazy listings render
//  8. Extract markup, text and title, then capture
func (s *Scraper) render(ctx context.Context, pageURL string, mode captureMode) (*models.Snapshot, error) {
	timeout := s.renderCfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.activePages.Add(1)
	defer s.activePages.Add(-1)

	page, err := s.pagePool.Get(func() (*rod.Page, error) {
		return s.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", err)
	}
	// The original page reference has no request context, so cleanup
	// still works after the deadline.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		s.pagePool.Put(page)
	}()

	if s.renderCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}
	if s.renderCfg.ViewportWidth > 0 && s.renderCfg.ViewportHeight > 0 {
		if vpErr := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             s.renderCfg.ViewportWidth,
			Height:            s.renderCfg.ViewportHeight,
			DeviceScaleFactor: 1,
		}); vpErr != nil {
			slog.Debug("viewport override failed", "error", vpErr)
		}
	}
	if u, parseErr := url.Parse(pageURL); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer":         "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
				"Accept-Language": "fr-FR,fr;q=0.9,en;q=0.8,ar;q=0.7",
			}),
		}.Call(page)
	}

	if router := s.filter.mount(page); router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)
	if err := p.Navigate(pageURL); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}
	if err := p.WaitLoad(); err != nil {
		slog.Debug("load event did not fire, proceeding with current DOM", "url", pageURL, "error", err)
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
	if err := sleepCtx(ctx, s.renderCfg.SettleDelay); err != nil {
		return nil, categorizeError(err, "render deadline exceeded while settling")
	}

	_, _ = p.Eval(`() => window.scrollTo(0, document.body ? document.body.scrollHeight : 0)`)
	_ = p.WaitDOMStable(300*time.Millisecond, 0.1)

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	snap := &models.Snapshot{
		URL:         pageURL,
		HTML:        rawHTML,
		VisibleText: evalStringOrEmpty(p, `() => document.body ? document.body.innerText : ""`),
		Title:       evalStringOrEmpty(p, `() => document.title`),
	}
	if final := evalStringOrEmpty(p, `() => window.location.href`); final != "" {
		snap.URL = final
	}

	if mode != captureNone {
		_, _ = p.Eval(`() => window.scrollTo(0, 0)`)
		path, shotErr := s.capture(p, mode == captureFullPage)
		if shotErr != nil {
			slog.Warn("screenshot failed", "url", pageURL, "error", shotErr)
		}
		snap.ScreenshotPath = path
	}
	return snap, nil
}

// capture writes a PNG screenshot into the configured directory.
func (s *Scraper) capture(p *rod.Page, fullPage bool) (string, error) {
	img, err := p.Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}

	f, err := os.CreateTemp(s.renderCfg.ScreenshotDir, "fieldscout-*.png")
	if err != nil {
		return "", fmt.Errorf("create screenshot file: %w", err)
	}
	if _, err := f.Write(img); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close screenshot: %w", err)
	}
	return f.Name(), nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can map them to HTTP status codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
