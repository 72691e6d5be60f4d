package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/use-agent/fieldscout/crawler"
	"github.com/use-agent/fieldscout/models"
)

type fakeCrawler struct {
	got     crawler.Request
	records []models.Record
	err     error
}

func (f *fakeCrawler) Run(ctx context.Context, req crawler.Request) (*crawler.Result, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("crawl must run under a deadline")
	}
	return &crawler.Result{
		Fields:  models.FieldSet{models.FieldName, models.FieldPhone, models.FieldAddress},
		Records: f.records,
	}, nil
}

type fakeValidator struct {
	keep    int
	skipped bool
	err     error
}

func (f fakeValidator) Validate(_ context.Context, _ string, recs []models.Record) ([]models.Record, bool, error) {
	if f.err != nil {
		return recs, true, f.err
	}
	return recs[:f.keep], f.skipped, nil
}

type fakeGeocoder struct{ calls int }

func (f *fakeGeocoder) GeocodeRecords(_ context.Context, recs []models.Record) []models.Record {
	f.calls++
	out := make([]models.Record, len(recs))
	copy(out, recs)
	for i := range out {
		if out[i].Address != "" {
			lat, lon := 36.8, 10.18
			out[i].Latitude, out[i].Longitude = &lat, &lon
		}
	}
	return out
}

var crawled = []models.Record{
	{Name: "Association Les Amis", Phone: "71234567", Address: "5 rue de Rome, Tunis"},
	{Name: "Club Sans Contact"},
}

func TestRun_FullPipeline(t *testing.T) {
	fc := &fakeCrawler{records: crawled}
	geo := &fakeGeocoder{}
	p := &Pipeline{Crawler: fc, Validator: fakeValidator{keep: 1}, Geocoder: geo, MaxTimeout: time.Minute}

	max := 3
	req := &models.ScrapeRequest{URL: "https://a.tn", Prompt: "phone address", MaxPages: &max, CrawlDetail: true, ValidateVision: true, Geocode: true, Timeout: 600}
	out, err := p.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantReq := crawler.Request{StartURL: "https://a.tn", Prompt: "phone address", MaxPages: &max, DeepCrawl: true}
	if !reflect.DeepEqual(fc.got, wantReq) {
		t.Errorf("crawler request = %+v, want %+v", fc.got, wantReq)
	}
	if out.Status != models.JobCompleted || out.VisionSkipped {
		t.Errorf("status = %q, vision skipped = %v", out.Status, out.VisionSkipped)
	}
	if want := []string{"name", "phone", "address"}; !reflect.DeepEqual(out.Fields, want) {
		t.Errorf("Fields = %v, want %v", out.Fields, want)
	}
	if len(out.Records) != 1 || out.Records[0].Latitude == nil {
		t.Errorf("Records = %+v, want one geocoded record", out.Records)
	}
	if len(out.Contact) != 1 || len(out.Location) != 1 {
		t.Errorf("contact = %d, location = %d, want 1 and 1", len(out.Contact), len(out.Location))
	}
	if geo.calls != 1 {
		t.Errorf("geocoder calls = %d", geo.calls)
	}
}

func TestRun_VisionSkipped(t *testing.T) {
	tests := []struct {
		name      string
		validator Validator
	}{
		{"no validator", nil},
		{"validator failure", fakeValidator{err: errors.New("detector down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Pipeline{Crawler: &fakeCrawler{records: crawled}, Validator: tt.validator}
			out, err := p.Run(context.Background(), &models.ScrapeRequest{URL: "https://a.tn", Prompt: "phone", ValidateVision: true})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !out.VisionSkipped || !reflect.DeepEqual(out.Records, crawled) {
				t.Errorf("skipped = %v, records = %+v; want unfiltered records", out.VisionSkipped, out.Records)
			}
		})
	}
}

// deadlineCrawler uses its whole deadline and returns what it has, as the
// crawler does on cancellation.
type deadlineCrawler struct{ records []models.Record }

func (f deadlineCrawler) Run(ctx context.Context, _ crawler.Request) (*crawler.Result, error) {
	<-ctx.Done()
	return &crawler.Result{Fields: models.FieldSet{models.FieldName}, Records: f.records}, nil
}

type ctxValidator struct{ err *error }

func (f ctxValidator) Validate(ctx context.Context, _ string, recs []models.Record) ([]models.Record, bool, error) {
	*f.err = ctx.Err()
	return recs, false, nil
}

type ctxGeocoder struct{ err *error }

func (f ctxGeocoder) GeocodeRecords(ctx context.Context, recs []models.Record) []models.Record {
	*f.err = ctx.Err()
	return recs
}

func TestRun_StagesOutliveCrawlDeadline(t *testing.T) {
	visionErr, geoErr := errors.New("not called"), errors.New("not called")
	p := &Pipeline{
		Crawler:      deadlineCrawler{records: crawled},
		Validator:    ctxValidator{err: &visionErr},
		Geocoder:     ctxGeocoder{err: &geoErr},
		MaxTimeout:   20 * time.Millisecond,
		StageTimeout: time.Minute,
	}
	out, err := p.Run(context.Background(), &models.ScrapeRequest{
		URL: "https://a.tn", Prompt: "adresse", Timeout: 60, ValidateVision: true, Geocode: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if visionErr != nil {
		t.Errorf("vision stage ctx err = %v, want nil", visionErr)
	}
	if geoErr != nil {
		t.Errorf("geocode stage ctx err = %v, want nil", geoErr)
	}
	if out.VisionSkipped || len(out.Records) != len(crawled) {
		t.Errorf("skipped = %v, records = %d; want %d validated records", out.VisionSkipped, len(out.Records), len(crawled))
	}
}

func TestRun_StagesOffByDefault(t *testing.T) {
	geo := &fakeGeocoder{}
	p := &Pipeline{Crawler: &fakeCrawler{records: crawled}, Validator: fakeValidator{keep: 0}, Geocoder: geo}
	out, err := p.Run(context.Background(), &models.ScrapeRequest{URL: "https://a.tn", Prompt: "phone"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Records) != 2 || geo.calls != 0 || out.Timing.VisionMs != 0 {
		t.Errorf("records = %d, geocoder calls = %d; stages must be opt-in", len(out.Records), geo.calls)
	}
}

func TestRun_InvalidInput(t *testing.T) {
	invalid := models.NewScrapeError(models.ErrCodeInvalidInput, "start URL is required", models.ErrEmptyStartURL)
	p := &Pipeline{Crawler: &fakeCrawler{err: invalid}}
	if _, err := p.Run(context.Background(), &models.ScrapeRequest{}); !errors.Is(err, models.ErrEmptyStartURL) {
		t.Errorf("err = %v, want ErrEmptyStartURL", err)
	}
}

func TestTimeout(t *testing.T) {
	p := &Pipeline{MaxTimeout: time.Hour}
	tests := []struct {
		seconds int
		want    time.Duration
	}{
		{0, 10 * time.Minute},
		{30, 30 * time.Second},
		{7200, time.Hour},
	}
	for _, tt := range tests {
		if got := p.timeout(&models.ScrapeRequest{Timeout: tt.seconds}); got != tt.want {
			t.Errorf("timeout(%d) = %v, want %v", tt.seconds, got, tt.want)
		}
	}

	if got := p.stageTimeout(); got != defaultStageTimeout {
		t.Errorf("stageTimeout() = %v, want %v", got, defaultStageTimeout)
	}
}
