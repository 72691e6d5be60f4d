package vision

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/use-agent/fieldscout/ocr"
)

// regionPSM treats each crop as a single uniform block of text.
const regionPSM = 6

// RegionOCR reads text from an image file.
type RegionOCR interface {
	TextWithOptions(ctx context.Context, path string, opts ocr.Options) (string, error)
}

// RegionReader OCRs detected boxes of a screenshot.
type RegionReader struct {
	OCR       RegionOCR
	Padding   int
	Languages string

	// TempDir holds the preprocessed crops; "" uses the system default.
	TempDir string
}

// NewRegionReader creates a reader with the given padding around boxes.
func NewRegionReader(o RegionOCR, padding int) *RegionReader {
	return &RegionReader{OCR: o, Padding: padding, Languages: "ara+fra+eng"}
}

// Read crops box out of img with padding, converts it to high-contrast
// grayscale and returns its text on one line. It returns "" when the
// region holds no text.
func (r *RegionReader) Read(ctx context.Context, img image.Image, box image.Rectangle) (string, error) {
	region := box.Inset(-r.Padding).Intersect(img.Bounds())
	if region.Empty() {
		return "", nil
	}

	crop := imaging.Crop(img, region)
	gray := imaging.Grayscale(crop)
	gray = imaging.AdjustContrast(gray, 40)
	gray = imaging.Sharpen(gray, 0.5)

	f, err := os.CreateTemp(r.TempDir, "fieldscout-region-*.png")
	if err != nil {
		return "", fmt.Errorf("create region file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if err := imaging.Encode(f, gray, imaging.PNG); err != nil {
		f.Close()
		return "", fmt.Errorf("encode region: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write region: %w", err)
	}

	text, err := r.OCR.TextWithOptions(ctx, path, ocr.Options{Languages: r.Languages, PSM: regionPSM})
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(text), " "), nil
}
