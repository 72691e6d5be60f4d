package vision

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/use-agent/fieldscout/engine"
	"github.com/use-agent/fieldscout/markup"
	"github.com/use-agent/fieldscout/models"
	"github.com/use-agent/fieldscout/ocr"
)

func TestCrossValidate(t *testing.T) {
	records := []models.Record{
		{Name: "Association Les Amis", Phone: "71234567"},
		{Name: "XYZ Totally Unrelated"},
		{Name: "Club Africain", Email: "info@ca.tn"},
		{Name: ""},
	}
	names := []string{"association les amis", "CLUB AFRICAIN.", "Espérance Sportive"}

	got := CrossValidate(records, names, 0.6)
	want := []models.Record{
		{Name: "Association Les Amis", Phone: "71234567"},
		{Name: "Club Africain", Email: "info@ca.tn"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CrossValidate = %+v, want %+v", got, want)
	}

	if got := CrossValidate(records, nil, 0.6); len(got) != 0 {
		t.Errorf("CrossValidate with no names = %+v, want none", got)
	}
}

// Edit distance penalises word order, so a detector reading the words of a
// name in another order does not confirm the record.
func TestCrossValidate_ReorderedName(t *testing.T) {
	records := []models.Record{{Name: "Club Africain"}, {Name: "Etoile du Sahel"}}
	names := []string{"Africain Club", "Etoile Sportive du Sahel"}

	got := CrossValidate(records, names, 0.6)
	want := []models.Record{{Name: "Etoile du Sahel"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CrossValidate = %+v, want %+v", got, want)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Association Les Amis", "association les amis", 1},
		{"abc", "abd", 2.0 / 3.0},
		{"abc", "xyz", 0},
		{"Club Africain", "Africain Club", 3.0 / 13.0},
		{"Etoile du Sahel", "Etoile Sportive du Sahel", 15.0 / 24.0},
	}
	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMatchLink(t *testing.T) {
	links := []Link{
		{Text: "association les amis de tunis", Href: "https://a.tn/amis"},
		{Text: "club africain", Href: "https://a.tn/ca"},
		{Text: "contact", Href: "https://a.tn/contact"},
	}
	tests := []struct {
		text string
		want string
	}{
		{"Club  Africain", "https://a.tn/ca"},
		{"Association Les Amis de Sfax", "https://a.tn/amis"},
		{"Les Amis", ""},
		{"Stade Tunisien", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MatchLink(tt.text, links, 0.5); got != tt.want {
			t.Errorf("MatchLink(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestPageLinks(t *testing.T) {
	doc, err := markup.Parse(`<body>
		<a href="/amis">Association <b>Les Amis</b></a>
		<a href="https://other.tn/x">Club Africain</a>
		<a href="/dup">club africain</a>
		<a href="/empty"> </a>
		<a>No href</a>
	</body>`)
	if err != nil {
		t.Fatal(err)
	}
	got := PageLinks(doc, "https://a.tn/list/")
	want := []Link{
		{Text: "association les amis", Href: "https://a.tn/amis"},
		{Text: "club africain", Href: "https://other.tn/x"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PageLinks = %+v, want %+v", got, want)
	}
}

func TestHTTPDetector(t *testing.T) {
	dir := t.TempDir()
	shot := filepath.Join(dir, "shot.png")
	if err := imaging.Save(imaging.New(50, 50, color.White), shot); err != nil {
		t.Fatal(err)
	}

	var gotType string
	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotLen = len(body)
		w.Write([]byte(`{"boxes": [[10, 20, 110, 60.7], [5, 5, 5, 9], [1, 2]]}`))
	}))
	defer srv.Close()

	boxes, err := NewHTTPDetector(srv.URL, 0).Detect(context.Background(), shot)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if want := []image.Rectangle{image.Rect(10, 20, 110, 60)}; !reflect.DeepEqual(boxes, want) {
		t.Errorf("boxes = %v, want %v", boxes, want)
	}
	if gotType != "image/png" || gotLen == 0 {
		t.Errorf("request content-type %q with %d bytes", gotType, gotLen)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	_, err = NewHTTPDetector(failing.URL, 0).Detect(context.Background(), shot)
	if se := models.AsScrapeError(err); se == nil || se.Code != models.ErrCodeDetectionFailure {
		t.Errorf("err = %v, want DETECTION_FAILED", err)
	}
}

// fakeRegionOCR reports the size of each crop it is asked to read and
// answers texts in order.
type fakeRegionOCR struct {
	texts []string
	sizes []image.Point
	opts  []ocr.Options
}

func (f *fakeRegionOCR) TextWithOptions(_ context.Context, path string, opts ocr.Options) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", err
	}
	f.sizes = append(f.sizes, img.Bounds().Size())
	f.opts = append(f.opts, opts)
	if len(f.texts) == 0 {
		return "", nil
	}
	text := f.texts[0]
	f.texts = f.texts[1:]
	return text, nil
}

func TestRegionReader_Read(t *testing.T) {
	img := imaging.New(200, 100, color.White)
	o := &fakeRegionOCR{texts: []string{"Association\n  Les Amis \n\n", ""}}
	r := NewRegionReader(o, 10)
	r.TempDir = t.TempDir()

	text, err := r.Read(context.Background(), img, image.Rect(20, 20, 60, 40))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if text != "Association Les Amis" {
		t.Errorf("text = %q", text)
	}

	// Padding is clipped at the image edge.
	if _, err := r.Read(context.Background(), img, image.Rect(0, 0, 30, 30)); err != nil {
		t.Fatalf("Read: %v", err)
	}
	wantSizes := []image.Point{{60, 40}, {40, 40}}
	if !reflect.DeepEqual(o.sizes, wantSizes) {
		t.Errorf("crop sizes = %v, want %v", o.sizes, wantSizes)
	}
	if o.opts[0] != (ocr.Options{Languages: "ara+fra+eng", PSM: 6}) {
		t.Errorf("ocr options = %+v", o.opts[0])
	}

	if text, _ := r.Read(context.Background(), img, image.Rect(500, 500, 600, 600)); text != "" {
		t.Errorf("Read outside image = %q, want empty", text)
	}
}

type fakeScreens struct {
	path string
	err  error
}

func (f fakeScreens) FullPageScreenshot(context.Context, string) (string, error) {
	return f.path, f.err
}

type fakeDetector struct {
	boxes []image.Rectangle
	err   error
}

func (f fakeDetector) Detect(context.Context, string) ([]image.Rectangle, error) {
	return f.boxes, f.err
}

type fakePages struct{ html string }

func (f fakePages) Dispatch(_ context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	return &engine.FetchResult{HTML: f.html, FinalURL: req.URL}, nil
}

func newTestValidator(t *testing.T, det Detector, texts ...string) *Validator {
	t.Helper()
	dir := t.TempDir()
	shot := filepath.Join(dir, "page.png")
	if err := imaging.Save(imaging.New(300, 300, color.White), shot); err != nil {
		t.Fatal(err)
	}
	regions := NewRegionReader(&fakeRegionOCR{texts: texts}, 10)
	regions.TempDir = dir
	return &Validator{
		Screens:     fakeScreens{path: shot},
		Detector:    det,
		Regions:     regions,
		Pages:       fakePages{html: `<a href="/amis">Association Les Amis</a>`},
		Similarity:  0.6,
		WordOverlap: 0.5,
	}
}

func TestValidator_Validate(t *testing.T) {
	det := fakeDetector{boxes: []image.Rectangle{image.Rect(10, 10, 100, 50), image.Rect(10, 100, 100, 150)}}
	v := newTestValidator(t, det, "association les amis", "Stade Tunisien")

	records := []models.Record{
		{Name: "Association Les Amis", Phone: "71234567"},
		{Name: "XYZ Totally Unrelated"},
	}
	kept, skipped, err := v.Validate(context.Background(), "https://a.tn/list", records)
	if err != nil || skipped {
		t.Fatalf("Validate: skipped=%v err=%v", skipped, err)
	}
	if want := records[:1]; !reflect.DeepEqual(kept, want) {
		t.Errorf("kept = %+v, want %+v", kept, want)
	}
}

func TestValidator_Detect(t *testing.T) {
	det := fakeDetector{boxes: []image.Rectangle{image.Rect(10, 10, 100, 50), image.Rect(10, 100, 100, 150)}}
	v := newTestValidator(t, det, "Association  Les Amis", "")

	names, err := v.Detect(context.Background(), "https://a.tn/list")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	want := []DetectedName{{Name: "Association Les Amis", DetailURL: "https://a.tn/amis"}}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Detect = %+v, want %+v", names, want)
	}
}

func TestValidator_SkipsOnFailure(t *testing.T) {
	records := []models.Record{{Name: "XYZ Totally Unrelated"}}

	detErr := models.NewScrapeError(models.ErrCodeDetectionFailure, "detector down", nil)
	v := newTestValidator(t, fakeDetector{err: detErr})
	kept, skipped, err := v.Validate(context.Background(), "https://a.tn", records)
	if !skipped || !errors.Is(err, detErr) || !reflect.DeepEqual(kept, records) {
		t.Errorf("detector failure: kept=%v skipped=%v err=%v", kept, skipped, err)
	}

	v = newTestValidator(t, fakeDetector{})
	kept, skipped, err = v.Validate(context.Background(), "https://a.tn", records)
	if !skipped || !errors.Is(err, ErrNoDetections) || !reflect.DeepEqual(kept, records) {
		t.Errorf("no detections: kept=%v skipped=%v err=%v", kept, skipped, err)
	}

	v = newTestValidator(t, fakeDetector{})
	v.Screens = fakeScreens{err: errors.New("browser crashed")}
	if _, skipped, err := v.Validate(context.Background(), "https://a.tn", records); !skipped || err == nil {
		t.Errorf("screenshot failure: skipped=%v err=%v", skipped, err)
	}
}
