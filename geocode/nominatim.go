// Package geocode resolves postal addresses to coordinates with Nominatim.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/fieldscout/config"
	"github.com/use-agent/fieldscout/models"
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Nominatim is a geocoding client. Lookups are rate limited, transient
// failures are retried, and successful lookups are cached for the lifetime
// of the client.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	retries   int

	// backoff is the wait before retry attempt+1.
	backoff func(attempt int) time.Duration

	mu    sync.Mutex
	cache map[string]Coordinates
}

// New creates a client from configuration.
func New(cfg config.GeocodeConfig) *Nominatim {
	rps := cfg.RPS
	if rps <= 0 {
		rps = 1
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 1
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		retries:   retries,
		backoff:   func(attempt int) time.Duration { return time.Duration(attempt+1) * 2 * time.Second },
		cache:     make(map[string]Coordinates),
	}
}

// errTransient marks failures worth retrying.
var errTransient = errors.New("transient geocoding failure")

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode returns the coordinates of address, or nil when Nominatim has no
// match. A miss is not cached and not retried.
func (n *Nominatim) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}
	if c, ok := n.cached(address); ok {
		return &c, nil
	}

	var lastErr error
	for attempt := 0; attempt < n.retries; attempt++ {
		coords, err := n.lookup(ctx, address)
		if err == nil {
			if coords != nil {
				n.store(address, *coords)
			}
			return coords, nil
		}
		lastErr = err
		if !errors.Is(err, errTransient) || attempt == n.retries-1 {
			break
		}
		wait := n.backoff(attempt)
		slog.Warn("geocoding attempt failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, models.NewScrapeError(models.ErrCodeGeocodeFailure, "geocoding canceled", ctx.Err())
		case <-time.After(wait):
		}
	}
	return nil, models.NewScrapeError(models.ErrCodeGeocodeFailure, "could not geocode address", lastErr)
}

func (n *Nominatim) lookup(ctx context.Context, address string) (*Coordinates, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errTransient, err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", errTransient, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var places []place
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(places) == 0 {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude %q: %w", places[0].Lon, err)
	}
	return &Coordinates{Lat: lat, Lon: lon}, nil
}

func (n *Nominatim) cached(address string) (Coordinates, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.cache[address]
	return c, ok
}

func (n *Nominatim) store(address string, c Coordinates) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cache[address] = c
}

// GeocodeRecords returns a copy of records with coordinates attached to
// every record whose address resolves. Records without an address, or
// whose address fails, are kept without coordinates.
func (n *Nominatim) GeocodeRecords(ctx context.Context, records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	copy(out, records)
	for i := range out {
		if out[i].Address == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		coords, err := n.Geocode(ctx, out[i].Address)
		if err != nil {
			slog.Warn("could not geocode address", "address", out[i].Address, "error", err)
			continue
		}
		if coords == nil {
			slog.Debug("address not found", "address", out[i].Address)
			continue
		}
		lat, lon := coords.Lat, coords.Lon
		out[i].Latitude = &lat
		out[i].Longitude = &lon
	}
	return out
}
