package models

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URL is the start page to scrape. Required.
	URL string `json:"url" binding:"required,url"`

	// Prompt describes the desired fields in natural language. Required.
	// Example: "Extract all names, phones, emails and addresses".
	Prompt string `json:"prompt" binding:"required"`

	// MaxPages caps the number of distinct detail pages visited.
	// Omitted or null means unlimited.
	MaxPages *int `json:"max_pages,omitempty" binding:"omitempty,min=0,max=1000"`

	// CrawlDetail follows each candidate's link one level deep.
	// Default: false.
	CrawlDetail bool `json:"crawl_detail,omitempty"`

	// ValidateVision filters results through the vision cross-validator.
	// Default: false.
	ValidateVision bool `json:"validate_vision,omitempty"`

	// Geocode attaches coordinates to records with an address.
	// Default: false.
	Geocode bool `json:"geocode,omitempty"`

	// Timeout is the max duration in seconds for the whole crawl.
	// Default: 600. Max: 3600.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=3600"`

	// MaxAge allows serving a cached result younger than this many
	// milliseconds. 0 disables the cache lookup.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`

	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 600
	}
}

// FieldsRequest is the payload for POST /api/v1/fields.
type FieldsRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// GeocodeRequest is the payload for POST /api/v1/geocode.
type GeocodeRequest struct {
	Address string `json:"address" binding:"required"`
}
