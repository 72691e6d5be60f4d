package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/fieldscout/app"
	"github.com/use-agent/fieldscout/models"
)

var crawlOpts struct {
	maxPages    int
	crawlDetail bool
	validate    bool
	geocode     bool
	output      string
	categorized bool
	timeout     time.Duration
}

var crawlCmd = &cobra.Command{
	Use:   "crawl URL PROMPT",
	Short: "Scrape a start page for the fields named in PROMPT",
	Long: `Scrape URL for the fields PROMPT asks for and write the records as JSON.

Examples:
  fieldscout-cli crawl https://example.org/members "names, phones and emails"
  fieldscout-cli crawl https://example.org/members "names and addresses" --crawl-detail --max-pages 25
  fieldscout-cli crawl https://example.org/members "names" --max-pages -1 --crawl-detail   # no page cap`,
	Args: cobra.ExactArgs(2),
	RunE: runCrawl,
}

func init() {
	f := crawlCmd.Flags()
	f.IntVar(&crawlOpts.maxPages, "max-pages", 10, "Max detail pages to visit (negative for unlimited)")
	f.BoolVar(&crawlOpts.crawlDetail, "crawl-detail", false, "Follow candidate links one level deep")
	f.BoolVar(&crawlOpts.validate, "validate", false, "Filter records through vision cross-validation")
	f.BoolVar(&crawlOpts.geocode, "geocode", false, "Attach coordinates to records with an address")
	f.StringVarP(&crawlOpts.output, "output", "o", "output.json", "Output JSON file")
	f.BoolVar(&crawlOpts.categorized, "categorized", false, "Write contact and location views alongside the records")
	f.DurationVar(&crawlOpts.timeout, "timeout", 10*time.Minute, "Deadline for the whole crawl")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	req := &models.ScrapeRequest{
		URL:            args[0],
		Prompt:         args[1],
		CrawlDetail:    crawlOpts.crawlDetail,
		ValidateVision: crawlOpts.validate,
		Geocode:        crawlOpts.geocode,
		Timeout:        int(crawlOpts.timeout.Seconds()),
	}
	if crawlOpts.maxPages >= 0 {
		n := crawlOpts.maxPages
		req.MaxPages = &n
	}

	if req.ValidateVision && cfg.Vision.DetectorURL == "" {
		fmt.Fprintln(os.Stderr, "warning: --validate needs FIELDSCOUT_DETECTOR_URL; results will be unfiltered")
	}
	if crawlOpts.timeout > cfg.Crawl.MaxCrawlTimeout {
		cfg.Crawl.MaxCrawlTimeout = crawlOpts.timeout
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.Pipeline.Run(ctx, req)
	if err != nil {
		return err
	}

	var out any = res.Records
	if crawlOpts.categorized {
		out = res
	}
	if err := writeJSON(crawlOpts.output, out); err != nil {
		return err
	}

	if len(res.Records) == 0 {
		fmt.Println("No records extracted.")
		return nil
	}
	fmt.Printf("Extracted %d records (%d with contact, %d with location). Output -> %s\n",
		len(res.Records), len(res.Contact), len(res.Location), crawlOpts.output)
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
