package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disintegration/imaging"

	"github.com/use-agent/fieldscout/engine"
	"github.com/use-agent/fieldscout/markup"
	"github.com/use-agent/fieldscout/models"
)

// ErrNoDetections is returned by Validate when the detector found no named
// region on the page.
var ErrNoDetections = errors.New("vision: no entity detected on the page")

// Screenshotter captures a full-page screenshot to a file.
type Screenshotter interface {
	FullPageScreenshot(ctx context.Context, url string) (string, error)
}

// PageFetcher returns the raw markup of a page.
type PageFetcher interface {
	Dispatch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)
}

// DetectedName is one entity read off the screenshot, with the detail page
// its text matched, if any.
type DetectedName struct {
	Name      string `json:"name"`
	DetailURL string `json:"detail_url,omitempty"`
}

// Validator runs the vision pass over a start page.
type Validator struct {
	Screens  Screenshotter
	Detector Detector
	Regions  *RegionReader
	Pages    PageFetcher

	// Similarity is the name ratio a record must exceed to be kept.
	Similarity float64

	// WordOverlap is the minimum overlap for matching text to a link.
	WordOverlap float64

	// FetchTimeout bounds the raw markup fetch used for links.
	FetchTimeout time.Duration
}

// Detect returns the names visible on url's rendered page. A failed link
// fetch only leaves DetailURL empty; screenshot and detector failures are
// returned.
func (v *Validator) Detect(ctx context.Context, url string) ([]DetectedName, error) {
	links := v.links(ctx, url)

	shot, err := v.Screens.FullPageScreenshot(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("vision screenshot: %w", err)
	}
	defer os.Remove(shot)

	boxes, err := v.Detector.Detect(ctx, shot)
	if err != nil {
		return nil, err
	}
	slog.Info("vision regions detected", "url", url, "regions", len(boxes))
	if len(boxes) == 0 {
		return nil, nil
	}

	img, err := imaging.Open(shot)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeDetectionFailure, "decode screenshot", err)
	}

	var names []DetectedName
	for i, box := range boxes {
		if ctx.Err() != nil {
			break
		}
		text, err := v.Regions.Read(ctx, img, box)
		if err != nil {
			slog.Warn("region OCR failed", "region", i, "error", err)
			continue
		}
		if text == "" {
			continue
		}
		names = append(names, DetectedName{
			Name:      text,
			DetailURL: MatchLink(text, links, v.WordOverlap),
		})
	}
	return names, nil
}

// Validate filters records down to those confirmed by the vision pass. When
// the pass fails or detects nothing, records come back unchanged with
// skipped set, along with the reason.
func (v *Validator) Validate(ctx context.Context, url string, records []models.Record) (kept []models.Record, skipped bool, err error) {
	detected, err := v.Detect(ctx, url)
	if err != nil {
		return records, true, err
	}
	if len(detected) == 0 {
		return records, true, ErrNoDetections
	}

	names := make([]string, len(detected))
	for i, d := range detected {
		names[i] = d.Name
	}
	kept = CrossValidate(records, names, v.Similarity)
	slog.Info("vision validation finished", "url", url, "detected", len(names), "kept", len(kept), "of", len(records))
	return kept, false, nil
}

func (v *Validator) links(ctx context.Context, url string) []Link {
	if v.Pages == nil {
		return nil
	}
	res, err := v.Pages.Dispatch(ctx, &engine.FetchRequest{URL: url, Timeout: v.FetchTimeout})
	if err != nil {
		slog.Warn("vision link fetch failed", "url", url, "error", err)
		return nil
	}
	doc, err := markup.Parse(res.HTML)
	if err != nil {
		slog.Warn("vision link markup unreadable", "url", url, "error", err)
		return nil
	}
	base := res.FinalURL
	if base == "" {
		base = url
	}
	return PageLinks(doc, base)
}
