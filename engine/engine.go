// Package engine fetches raw page markup. The cheap HTTP engine runs first
// and the rod browser takes over for pages that need JavaScript.
package engine

import (
	"context"
	"time"
)

// Engine fetches the markup of one page.
type Engine interface {
	// Name identifies the engine in logs and domain memory ("http", "rod").
	Name() string

	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest describes one fetch.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// FetchResult is the markup an engine returned.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}
