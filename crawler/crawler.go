package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/fieldscout/markup"
	"github.com/use-agent/fieldscout/models"
)

// PromptParser turns a prompt into the fields to extract.
type PromptParser interface {
	Parse(ctx context.Context, prompt string) models.FieldSet
}

// Request is one crawl invocation.
type Request struct {
	StartURL string
	Prompt   string

	// MaxPages caps the distinct detail pages visited; nil is unlimited.
	MaxPages *int

	// DeepCrawl follows candidate links to their detail pages.
	DeepCrawl bool
}

// Extraction modes reported in Result.
const (
	ModeNone    = "none"
	ModeTable   = "table"
	ModeAnchors = "anchors"
)

// Result is the outcome of a crawl.
type Result struct {
	Fields  models.FieldSet
	Records []models.Record

	// Mode is the extraction path the start page took.
	Mode string

	// DetailPages counts the detail pages fetched.
	DetailPages int
}

// Crawler runs the crawl pipeline. Everything within one crawl happens
// sequentially; detail pages are fetched one at a time.
type Crawler struct {
	Renderer Renderer
	OCR      OCR
	Parser   PromptParser
	Selector *markup.Selector
	Fields   FieldResolver
	Detail   *DetailResolver

	// CourtesyDelay is the pause after each detail-page fetch.
	CourtesyDelay time.Duration
}

// New wires a crawler from its collaborators.
func New(renderer Renderer, ocr OCR, parser PromptParser, selector *markup.Selector, fields FieldResolver, delay time.Duration) *Crawler {
	return &Crawler{
		Renderer: renderer,
		OCR:      ocr,
		Parser:   parser,
		Selector: selector,
		Fields:   fields,
		Detail: &DetailResolver{
			Renderer: renderer,
			OCR:      ocr,
			Fields:   fields,
		},
		CourtesyDelay: delay,
	}
}

// Crawl returns the records found from req. Only an empty start URL is an
// error; every other failure degrades to fewer or emptier records.
func (c *Crawler) Crawl(ctx context.Context, req Request) ([]models.Record, error) {
	res, err := c.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Run is Crawl with the parsed fields and crawl statistics.
func (c *Crawler) Run(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.StartURL) == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "start URL is required", models.ErrEmptyStartURL)
	}
	fs := c.Parser.Parse(ctx, req.Prompt)
	slog.Info("parsed fields from prompt", "fields", fs.Strings())
	return c.CrawlFields(ctx, req.StartURL, fs, req.MaxPages, req.DeepCrawl)
}

// CrawlFields crawls startURL for an explicit field set.
func (c *Crawler) CrawlFields(ctx context.Context, startURL string, fs models.FieldSet, maxPages *int, deep bool) (*Result, error) {
	if strings.TrimSpace(startURL) == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "start URL is required", models.ErrEmptyStartURL)
	}
	if len(fs) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "at least one field is required", models.ErrEmptyFieldSet)
	}

	res := &Result{Fields: fs, Records: []models.Record{}, Mode: ModeNone}

	slog.Info("loading start page", "url", startURL)
	snap, err := c.Renderer.Render(ctx, startURL)
	if err != nil {
		slog.Warn("start page render failed", "url", startURL, "error", err)
		return res, nil
	}
	defer removeScreenshot(snap)
	if snap.Empty() {
		slog.Warn("start page rendered empty", "url", startURL)
		return res, nil
	}

	doc, err := markup.Parse(snap.HTML)
	if err != nil {
		slog.Warn("start page markup unreadable", "url", startURL, "error", err)
		return res, nil
	}

	if rows, ok := markup.ExtractTable(doc, fs); ok {
		slog.Info("table detected, using table extraction", "url", startURL, "rows", len(rows))
		res.Mode = ModeTable
		res.Records = rows
		return res, nil
	}

	baseURL := snap.URL
	if baseURL == "" {
		baseURL = startURL
	}
	text := visibleText(snap)
	lang := markup.DetectLanguage(doc, text)
	candidates := c.Selector.Select(ctx, doc, baseURL, lang)
	slog.Info("anchor candidates selected", "url", startURL, "lang", lang, "candidates", len(candidates))

	res.Mode = ModeAnchors
	run := &crawlRun{
		crawler:    c,
		fields:     fs,
		deep:       deep,
		budget:     newBudget(maxPages),
		startURL:   startURL,
		screenshot: snap.ScreenshotPath,
	}

	records := make([]models.Record, 0, len(candidates))
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			slog.Warn("crawl deadline reached, returning partial results",
				"url", startURL, "processed", len(records), "candidates", len(candidates))
			break
		}
		rec, err := run.candidate(ctx, cand)
		if err != nil {
			slog.Warn("candidate skipped", "name", cand.Name, "error", err)
			continue
		}
		records = append(records, rec)
	}

	res.Records = Dedupe(records)
	res.DetailPages = run.budget.used()
	slog.Info("crawl finished", "url", startURL, "records", len(res.Records), "detail_pages", res.DetailPages)
	return res, nil
}

// crawlRun is the per-invocation state of the anchor path.
type crawlRun struct {
	crawler  *Crawler
	fields   models.FieldSet
	deep     bool
	budget   *budget
	startURL string

	screenshot string
	mainOCR    *string
}

// candidate builds the record for one anchor. A panic anywhere in its
// processing is returned as an error so the crawl can move on.
func (r *crawlRun) candidate(ctx context.Context, cand models.Candidate) (rec models.Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("candidate %q panicked: %v", cand.Name, p)
		}
	}()

	rec = models.Record{Name: cand.Name, DetailURL: cand.Href}

	if r.deep && cand.Href != "" {
		if !r.budget.take(cand.Href) {
			return rec, nil
		}
		slog.Info("processing detail page", "name", cand.Name, "url", cand.Href)
		rec.Merge(r.crawler.Detail.Resolve(ctx, cand.Href, r.fields))
		if err := sleepCtx(ctx, r.crawler.CourtesyDelay); err != nil {
			slog.Debug("courtesy delay interrupted", "error", err)
		}
		return rec, nil
	}

	pc := models.PageContext{
		URL:     r.startURL,
		Text:    cand.ParentText,
		OCRText: r.mainPageOCR(ctx),
	}
	rec.Merge(r.crawler.Fields.Resolve(ctx, pc, r.fields.Without(models.FieldName)))
	return rec, nil
}

// mainPageOCR reads the start page screenshot once per crawl.
func (r *crawlRun) mainPageOCR(ctx context.Context) string {
	if r.mainOCR == nil {
		text := readScreenshot(ctx, r.crawler.OCR, r.screenshot)
		r.mainOCR = &text
	}
	return *r.mainOCR
}

// budget tracks visited detail URLs against the page cap.
type budget struct {
	max     *int
	visited map[string]struct{}
}

func newBudget(max *int) *budget {
	return &budget{max: max, visited: make(map[string]struct{})}
}

// take marks url visited and reports whether it may be fetched: it must be
// new and the cap not yet reached.
func (b *budget) take(url string) bool {
	if _, seen := b.visited[url]; seen {
		return false
	}
	if b.max != nil && len(b.visited) >= *b.max {
		return false
	}
	b.visited[url] = struct{}{}
	return true
}

func (b *budget) used() int { return len(b.visited) }

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
