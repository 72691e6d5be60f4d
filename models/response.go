package models

// ScrapeResponse is the immediate response for POST /api/v1/scrape.
type ScrapeResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Status  string `json:"status,omitempty"`

	// CacheStatus is "hit" when the result was served from cache.
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ScrapeStatusResponse is the response for GET /api/v1/scrape/:id.
type ScrapeStatusResponse struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Fields []string `json:"fields,omitempty"`

	Records  []Record `json:"records"`
	Contact  []Record `json:"contact"`
	Location []Record `json:"location"`

	// VisionSkipped is true when vision validation was requested but
	// could not run; Records are then unfiltered.
	VisionSkipped bool `json:"vision_skipped,omitempty"`

	Timing TimingInfo   `json:"timing"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// FieldsResponse is the response for POST /api/v1/fields.
type FieldsResponse struct {
	Fields   []string            `json:"fields"`
	Keywords map[string][]string `json:"keywords,omitempty"`
}

// GeocodeResponse is the response for POST /api/v1/geocode.
type GeocodeResponse struct {
	Success   bool         `json:"success"`
	Found     bool         `json:"found"`
	Latitude  float64      `json:"latitude,omitempty"`
	Longitude float64      `json:"longitude,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// CrawlMs is the time spent in the crawl orchestrator.
	CrawlMs int64 `json:"crawl_ms"`

	// VisionMs is the time spent in vision validation.
	VisionMs int64 `json:"vision_ms,omitempty"`

	// GeocodeMs is the time spent geocoding addresses.
	GeocodeMs int64 `json:"geocode_ms,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Jobs      int       `json:"jobs"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
