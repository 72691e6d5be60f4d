// Package ocr reads text from screenshots with the tesseract CLI.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/fieldscout/config"
	"github.com/use-agent/fieldscout/models"
)

// Options tune one tesseract run.
type Options struct {
	// Languages is a "+"-joined tesseract language list, e.g. "ara+fra+eng".
	Languages string

	// PSM is the page segmentation mode; 0 keeps tesseract's default.
	PSM int
}

// Tesseract runs the tesseract binary.
type Tesseract struct {
	Binary    string
	Languages string
	Timeout   time.Duration

	// run executes the command; replaced in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New creates a Tesseract from configuration.
func New(cfg config.OCRConfig) *Tesseract {
	return &Tesseract{
		Binary:    cfg.Binary,
		Languages: cfg.Languages,
		Timeout:   cfg.Timeout,
	}
}

// Text OCRs the whole image at path with the default options.
func (t *Tesseract) Text(ctx context.Context, path string) (string, error) {
	return t.TextWithOptions(ctx, path, Options{Languages: t.Languages})
}

// TextWithOptions OCRs the image at path.
func (t *Tesseract) TextWithOptions(ctx context.Context, path string, opts Options) (string, error) {
	if path == "" {
		return "", models.NewScrapeError(models.ErrCodeOCRFailure, "no image to read", nil)
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	args := []string{path, "stdout", "--oem", "3"}
	if opts.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PSM))
	}
	if opts.Languages != "" {
		args = append(args, "-l", opts.Languages)
	}

	run := t.run
	if run == nil {
		run = execCommand
	}
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	out, err := run(ctx, bin, args...)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeOCRFailure, "tesseract failed", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
