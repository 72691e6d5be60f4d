package engine

import (
	"context"
	"fmt"

	"github.com/use-agent/fieldscout/models"
)

// RenderFunc loads a page in the browser. It is scraper.Scraper.FetchHTML in
// the binaries; engine cannot import scraper without a cycle.
type RenderFunc func(ctx context.Context, url string) (*models.Snapshot, error)

// RodEngine fetches markup through the shared rod browser.
type RodEngine struct {
	render RenderFunc
}

func NewRodEngine(render RenderFunc) *RodEngine {
	return &RodEngine{render: render}
}

func (e *RodEngine) Name() string { return "rod" }

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.render == nil {
		return nil, fmt.Errorf("rod: no renderer configured")
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	snap, err := e.render(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("rod: %w", err)
	}
	if snap.HTML == "" {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "rod: page rendered empty", nil)
	}

	finalURL := snap.URL
	if finalURL == "" {
		finalURL = req.URL
	}
	return &FetchResult{
		HTML:       snap.HTML,
		Title:      snap.Title,
		StatusCode: 200,
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}
