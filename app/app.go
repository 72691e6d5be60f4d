// Package app builds the fieldscout component graph from configuration.
// The server and the command-line tool share it.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/use-agent/fieldscout/config"
	"github.com/use-agent/fieldscout/crawler"
	"github.com/use-agent/fieldscout/engine"
	"github.com/use-agent/fieldscout/extract"
	"github.com/use-agent/fieldscout/fields"
	"github.com/use-agent/fieldscout/geocode"
	"github.com/use-agent/fieldscout/llm"
	"github.com/use-agent/fieldscout/markup"
	"github.com/use-agent/fieldscout/nlp"
	"github.com/use-agent/fieldscout/ocr"
	"github.com/use-agent/fieldscout/pipeline"
	"github.com/use-agent/fieldscout/qa"
	"github.com/use-agent/fieldscout/records"
	"github.com/use-agent/fieldscout/scraper"
	"github.com/use-agent/fieldscout/vision"
)

// domainMemoryTTL is how long the dispatcher remembers which engine
// served a domain.
const domainMemoryTTL = 24 * time.Hour

// App holds the wired components. Close releases the browser and the
// background sweepers.
type App struct {
	Scraper    *scraper.Scraper
	Parser     *fields.Parser
	Crawler    *crawler.Crawler
	Dispatcher *engine.Dispatcher
	Validator  *vision.Validator // nil when no detector is configured
	Geocoder   *geocode.Nominatim
	Pipeline   *pipeline.Pipeline

	memory *engine.DomainMemory
}

// New launches the browser and wires every component.
func New(cfg *config.Config) (*App, error) {
	vocab, err := extract.LoadVocabulary(cfg.Extract.VocabularyFile)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	completer, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}

	sc, err := scraper.NewScraper(cfg.Browser, cfg.Render)
	if err != nil {
		return nil, fmt.Errorf("init scraper: %w", err)
	}

	// ── Prompt interpretation ───────────────────────────────────────
	var interp fields.Interpreter
	if completer != nil {
		interp = &fields.LLMInterpreter{LLM: completer}
	}
	parser := fields.NewParser(interp, vocab)

	// ── Entity recognition and field resolution ─────────────────────
	loader := nlp.GazetteerLoader
	if cfg.NLP.NERURL != "" {
		loader = nlp.HTTPLoader(cfg.NLP.NERURL, cfg.NLP.Timeout)
	}
	selector := markup.NewSelector(nlp.NewCache(loader), vocab)

	resolver := extract.NewResolver(qa.New(cfg.QA, completer), cfg.Extract.QAMinScore, vocab)
	resolver.Enhance = parser.Enhance

	tess := ocr.New(cfg.OCR)
	cr := crawler.New(sc, tess, parser, selector, resolver, cfg.Crawl.CourtesyDelay)

	// ── Raw markup dispatcher (static first, browser fallback) ──────
	memory := engine.NewDomainMemory(domainMemoryTTL)
	dispatcher := engine.NewDispatcher([]engine.Engine{
		engine.NewHTTPEngine(""),
		engine.NewRodEngine(sc.FetchHTML),
	}, memory)

	a := &App{
		Scraper:    sc,
		Parser:     parser,
		Crawler:    cr,
		Dispatcher: dispatcher,
		Geocoder:   geocode.New(cfg.Geocode),
		memory:     memory,
	}

	// ── Vision cross-validation ─────────────────────────────────────
	if cfg.Vision.DetectorURL != "" {
		regions := vision.NewRegionReader(tess, cfg.Vision.Padding)
		regions.Languages = cfg.OCR.Languages
		regions.TempDir = cfg.Render.ScreenshotDir
		a.Validator = &vision.Validator{
			Screens:      sc,
			Detector:     vision.NewHTTPDetector(cfg.Vision.DetectorURL, cfg.Vision.Timeout),
			Regions:      regions,
			Pages:        dispatcher,
			Similarity:   cfg.Extract.NameSimilarity,
			WordOverlap:  cfg.Extract.WordOverlap,
			FetchTimeout: cfg.Vision.HTTPTimeout,
		}
	}

	a.Pipeline = &pipeline.Pipeline{
		Crawler:      cr,
		Geocoder:     a.Geocoder,
		Categorizer:  records.NewCategorizer(vocab),
		MaxTimeout:   cfg.Crawl.MaxCrawlTimeout,
		StageTimeout: cfg.Crawl.StageTimeout,
	}
	if a.Validator != nil {
		a.Pipeline.Validator = a.Validator
	}

	slog.Info("components ready",
		"llm", cfg.LLM.Provider,
		"qa", cfg.QA.Provider,
		"ner", cfg.NLP.NERURL != "",
		"vision", a.Validator != nil,
	)
	return a, nil
}

// Close stops the dispatcher memory and kills the browser.
func (a *App) Close() {
	a.memory.Stop()
	a.Scraper.Close()
}

// InitLogger configures slog from cfg. With cfg.File set, records are
// also written to a size-rotated file.
func InitLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		})
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
}
