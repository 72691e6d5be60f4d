// Package vision cross-checks crawled names against the entity cards an
// object detector finds on a full-page screenshot.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/use-agent/fieldscout/models"
)

// Detector finds entity regions on a screenshot.
type Detector interface {
	Detect(ctx context.Context, imagePath string) ([]image.Rectangle, error)
}

// HTTPDetector posts the screenshot to a YOLO-style inference server that
// answers {"boxes": [[x1, y1, x2, y2], ...]} in pixel coordinates.
type HTTPDetector struct {
	URL    string
	Client *http.Client
}

// NewHTTPDetector creates a detector client for endpoint.
func NewHTTPDetector(endpoint string, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{URL: endpoint, Client: &http.Client{Timeout: timeout}}
}

type detectResponse struct {
	Boxes [][]float64 `json:"boxes"`
}

func (d *HTTPDetector) Detect(ctx context.Context, imagePath string) ([]image.Rectangle, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeDetectionFailure, "read screenshot", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(data))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeDetectionFailure, "build detector request", err)
	}
	req.Header.Set("Content-Type", "image/png")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeDetectionFailure, "detector request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeDetectionFailure, "read detector response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, models.NewScrapeError(models.ErrCodeDetectionFailure,
			fmt.Sprintf("detector returned status %d: %s", resp.StatusCode, truncate(string(body), 200)), nil)
	}

	var out detectResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeDetectionFailure, "decode detector response", err)
	}

	boxes := make([]image.Rectangle, 0, len(out.Boxes))
	for _, b := range out.Boxes {
		if len(b) < 4 {
			continue
		}
		r := image.Rect(int(b[0]), int(b[1]), int(b[2]), int(b[3]))
		if r.Empty() {
			continue
		}
		boxes = append(boxes, r)
	}
	return boxes, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
