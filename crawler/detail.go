// Package crawler assembles records from a start page: table rows when the
// page is tabular, otherwise entity anchors enriched from their own context
// or from their detail pages.
package crawler

import (
	"context"
	"log/slog"
	"os"

	"github.com/use-agent/fieldscout/markup"
	"github.com/use-agent/fieldscout/models"
)

// Renderer loads a URL in a browser.
type Renderer interface {
	Render(ctx context.Context, url string) (*models.Snapshot, error)
}

// OCR reads the text of an image file.
type OCR interface {
	Text(ctx context.Context, path string) (string, error)
}

// FieldResolver fills requested fields from one page context.
type FieldResolver interface {
	Resolve(ctx context.Context, pc models.PageContext, fs models.FieldSet) models.Record
}

// DetailResolver fetches a candidate's detail page and resolves fields from
// it. It keeps no state between calls.
type DetailResolver struct {
	Renderer Renderer
	OCR      OCR
	Fields   FieldResolver
}

// Resolve renders url and returns the fields of fs found there, name
// excluded. Any render failure yields an empty record.
func (d *DetailResolver) Resolve(ctx context.Context, url string, fs models.FieldSet) models.Record {
	snap, err := d.Renderer.Render(ctx, url)
	if err != nil {
		slog.Warn("detail page render failed", "url", url, "error", err)
		return models.Record{}
	}
	defer removeScreenshot(snap)
	if snap.Empty() {
		slog.Warn("detail page rendered empty", "url", url)
		return models.Record{}
	}

	pc := models.PageContext{
		URL:     url,
		HTML:    snap.HTML,
		Text:    visibleText(snap),
		OCRText: readScreenshot(ctx, d.OCR, snap.ScreenshotPath),
	}
	return d.Fields.Resolve(ctx, pc, fs.Without(models.FieldName))
}

// visibleText prefers the browser's innerText and falls back to text
// recovered from the markup.
func visibleText(snap *models.Snapshot) string {
	if snap.VisibleText != "" {
		return snap.VisibleText
	}
	return markup.VisibleText(snap.HTML, snap.URL)
}

// readScreenshot OCRs path, returning "" on any failure.
func readScreenshot(ctx context.Context, ocr OCR, path string) string {
	if ocr == nil || path == "" {
		return ""
	}
	text, err := ocr.Text(ctx, path)
	if err != nil {
		slog.Warn("screenshot OCR failed", "path", path, "error", err)
		return ""
	}
	return text
}

func removeScreenshot(snap *models.Snapshot) {
	if snap == nil || snap.ScreenshotPath == "" {
		return
	}
	if err := os.Remove(snap.ScreenshotPath); err != nil && !os.IsNotExist(err) {
		slog.Debug("failed to remove screenshot", "path", snap.ScreenshotPath, "error", err)
	}
}
