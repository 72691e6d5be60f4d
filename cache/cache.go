// Package cache keeps recent crawl results in memory so that repeated
// requests within a caller-chosen max age skip the crawl.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/fieldscout/models"
)

// maxLifetime bounds how long any result is kept, whatever max age a
// caller asks for.
const maxLifetime = time.Hour

type entry struct {
	result    models.ScrapeStatusResponse
	createdAt time.Time
}

// Cache stores completed crawl results. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	now        func() time.Time
	done       chan struct{}
	once       sync.Once
}

// New creates a cache holding at most maxEntries results and starts the
// sweep goroutine that drops results older than an hour.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Key identifies a crawl by every request parameter that changes its
// result.
func Key(req *models.ScrapeRequest) string {
	maxPages := "all"
	if req.MaxPages != nil {
		maxPages = strconv.Itoa(*req.MaxPages)
	}
	parts := []string{
		req.URL,
		strings.TrimSpace(req.Prompt),
		maxPages,
		strconv.FormatBool(req.CrawlDetail),
		strconv.FormatBool(req.ValidateVision),
		strconv.FormatBool(req.Geocode),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Get returns the result stored under key when it is younger than
// maxAgeMs milliseconds. maxAgeMs <= 0 always misses.
func (c *Cache) Get(key string, maxAgeMs int) (models.ScrapeStatusResponse, bool) {
	if maxAgeMs <= 0 {
		return models.ScrapeStatusResponse{}, false
	}
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return models.ScrapeStatusResponse{}, false
	}
	if c.now().Sub(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return models.ScrapeStatusResponse{}, false
	}
	return e.result, true
}

// Set stores result under key. At capacity an arbitrary entry is evicted.
func (c *Cache) Set(key string, result models.ScrapeStatusResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{result: result, createdAt: c.now()}
}

// Len returns the number of stored results.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop ends the sweep goroutine.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	cutoff := c.now().Add(-maxLifetime)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}
