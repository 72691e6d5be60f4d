// Package pipeline runs one scrape request end to end: crawl, optional
// vision validation, optional geocoding, then categorisation.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/fieldscout/crawler"
	"github.com/use-agent/fieldscout/models"
	"github.com/use-agent/fieldscout/records"
)

// Crawler produces the records of a start page.
type Crawler interface {
	Run(ctx context.Context, req crawler.Request) (*crawler.Result, error)
}

// Validator filters records against the vision pass.
type Validator interface {
	Validate(ctx context.Context, url string, records []models.Record) ([]models.Record, bool, error)
}

// Geocoder attaches coordinates to records with an address.
type Geocoder interface {
	GeocodeRecords(ctx context.Context, records []models.Record) []models.Record
}

// Pipeline holds the stages. Validator and Geocoder may be nil, in which
// case requests asking for them skip the stage.
type Pipeline struct {
	Crawler     Crawler
	Validator   Validator
	Geocoder    Geocoder
	Categorizer *records.Categorizer

	// MaxTimeout caps the per-request crawl timeout.
	MaxTimeout time.Duration

	// StageTimeout bounds the stages after the crawl. They get their own
	// budget so a crawl that used its whole deadline is still validated
	// and geocoded.
	StageTimeout time.Duration
}

const defaultStageTimeout = 5 * time.Minute

// Run executes req and returns the completed status. The only error is an
// invalid request; every stage failure degrades the result instead.
func (p *Pipeline) Run(ctx context.Context, req *models.ScrapeRequest) (models.ScrapeStatusResponse, error) {
	start := time.Now()
	crawlCtx, cancel := context.WithTimeout(ctx, p.timeout(req))
	defer cancel()

	res, err := p.Crawler.Run(crawlCtx, crawler.Request{
		StartURL:  req.URL,
		Prompt:    req.Prompt,
		MaxPages:  req.MaxPages,
		DeepCrawl: req.CrawlDetail,
	})
	if err != nil {
		return models.ScrapeStatusResponse{}, err
	}
	out := models.ScrapeStatusResponse{
		Status: models.JobCompleted,
		Fields: res.Fields.Strings(),
	}
	out.Timing.CrawlMs = time.Since(start).Milliseconds()
	recs := res.Records
	if crawlCtx.Err() != nil {
		slog.Warn("crawl deadline reached, keeping partial records", "url", req.URL, "records", len(recs))
	}

	stageCtx, cancelStages := context.WithTimeout(ctx, p.stageTimeout())
	defer cancelStages()

	if req.ValidateVision {
		visionStart := time.Now()
		recs, out.VisionSkipped = p.validate(stageCtx, req.URL, recs)
		out.Timing.VisionMs = time.Since(visionStart).Milliseconds()
	}

	if req.Geocode {
		if p.Geocoder == nil {
			slog.Warn("geocoding requested but no geocoder configured")
		} else {
			geoStart := time.Now()
			recs = p.Geocoder.GeocodeRecords(stageCtx, recs)
			out.Timing.GeocodeMs = time.Since(geoStart).Milliseconds()
		}
	}

	categorizer := p.Categorizer
	if categorizer == nil {
		categorizer = records.NewCategorizer(nil)
	}
	cats := categorizer.Categorize(recs)
	out.Records = cats.Raw
	out.Contact = cats.Contact
	out.Location = cats.Location
	out.Timing.TotalMs = time.Since(start).Milliseconds()

	slog.Info("scrape finished",
		"url", req.URL,
		"records", len(out.Records),
		"contact", len(out.Contact),
		"location", len(out.Location),
		"vision_skipped", out.VisionSkipped,
		"total_ms", out.Timing.TotalMs,
	)
	return out, nil
}

func (p *Pipeline) validate(ctx context.Context, url string, recs []models.Record) ([]models.Record, bool) {
	if p.Validator == nil {
		slog.Warn("vision validation requested but no detector configured", "url", url)
		return recs, true
	}
	kept, skipped, err := p.Validator.Validate(ctx, url, recs)
	if err != nil {
		slog.Warn("vision validation skipped", "url", url, "error", err)
	}
	return kept, skipped
}

func (p *Pipeline) stageTimeout() time.Duration {
	if p.StageTimeout > 0 {
		return p.StageTimeout
	}
	return defaultStageTimeout
}

func (p *Pipeline) timeout(req *models.ScrapeRequest) time.Duration {
	d := time.Duration(req.Timeout) * time.Second
	if d <= 0 {
		d = 10 * time.Minute
	}
	if p.MaxTimeout > 0 && d > p.MaxTimeout {
		d = p.MaxTimeout
	}
	return d
}
