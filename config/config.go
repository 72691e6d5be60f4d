package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Render    RenderConfig
	Crawl     CrawlConfig
	Extract   ExtractConfig
	LLM       LLMConfig
	QA        QAConfig
	OCR       OCRConfig
	NLP       NLPConfig
	Vision    VisionConfig
	Geocode   GeocodeConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 4

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// RenderConfig controls how a single page is rendered.
type RenderConfig struct {
	// Timeout is the per-page render deadline.
	Timeout time.Duration // default: 60s

	// SettleDelay is the extra wait after load for dynamic content.
	SettleDelay time.Duration // default: 2s

	// Stealth injects anti-detection JS before navigation.
	Stealth bool // default: true

	// BlockAds blocks well-known ad and tracking domains.
	BlockAds bool // default: true

	// BlockedResourceTypes lists resource types to block.
	// Images stay enabled because screenshots feed OCR.
	// default: ["Media"]
	BlockedResourceTypes []string

	// ScreenshotDir is where screenshots are written.
	ScreenshotDir string // default: os.TempDir()

	// ViewportWidth and ViewportHeight set the emulated window.
	ViewportWidth  int // default: 1920
	ViewportHeight int // default: 1080
}

// CrawlConfig controls the crawl orchestrator.
type CrawlConfig struct {
	// CourtesyDelay is the pause after each detail-page fetch.
	CourtesyDelay time.Duration // default: 1s

	// MaxCrawlTimeout caps the caller-supplied crawl timeout.
	MaxCrawlTimeout time.Duration // default: 1h

	// StageTimeout bounds vision validation and geocoding, which start
	// after the crawl deadline.
	StageTimeout time.Duration // default: 5m
}

// ExtractConfig holds the empirically chosen matching thresholds and the
// optional vocabulary override file.
type ExtractConfig struct {
	// QAMinScore is the confidence an answer must exceed to be accepted.
	QAMinScore float64 // default: 0.3

	// WordOverlap is the minimum word-overlap ratio for vision link matching.
	WordOverlap float64 // default: 0.5

	// NameSimilarity is the ratio a record name must exceed to survive
	// vision cross-validation.
	NameSimilarity float64 // default: 0.6

	// VocabularyFile is a YAML file overriding the keyword vocabulary.
	VocabularyFile string
}

// LLMConfig configures the language model used to interpret prompts.
type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible API), "anthropic" or "" (disabled).
	Provider string

	APIKey  string
	Model   string        // default: "gpt-4o-mini"
	BaseURL string        // default: "https://api.openai.com/v1"
	Timeout time.Duration // default: 20s
}

// Enabled reports whether an LLM provider is configured.
func (c LLMConfig) Enabled() bool {
	return c.Provider != "" && c.APIKey != ""
}

// QAConfig configures the question-answering collaborator.
type QAConfig struct {
	// Provider is "http" (HuggingFace-style inference endpoint), "llm" or "" (disabled).
	Provider string

	// Endpoint is the question-answering inference URL.
	// default: distilbert-base-cased-distilled-squad on the HF inference API.
	Endpoint string
	APIKey   string
	Timeout  time.Duration // default: 30s

	// MaxContextChars truncates the context sent to the model.
	MaxContextChars int // default: 8000
}

// OCRConfig configures the tesseract CLI.
type OCRConfig struct {
	Binary    string        // default: "tesseract"
	Languages string        // default: "ara+fra+eng"
	Timeout   time.Duration // default: 60s
}

// NLPConfig configures named-entity recognition.
type NLPConfig struct {
	// NERURL is an optional remote NER service. When empty the built-in
	// gazetteer models are used.
	NERURL  string
	Timeout time.Duration // default: 10s
}

// VisionConfig configures the vision cross-validator.
type VisionConfig struct {
	// DetectorURL is the object-detection inference endpoint. Vision
	// validation is unavailable when empty.
	DetectorURL string
	Timeout     time.Duration // default: 60s

	// Padding is added around each detected box before OCR.
	Padding int // default: 10

	// HTTPTimeout is the deadline for the raw-HTML link fetch.
	HTTPTimeout time.Duration // default: 10s
}

// GeocodeConfig configures the Nominatim geocoder.
type GeocodeConfig struct {
	BaseURL   string        // default: "https://nominatim.openstreetmap.org"
	UserAgent string        // default: "fieldscout"
	RPS       float64       // default: 1 (Nominatim usage policy)
	Retries   int           // default: 3
	Timeout   time.Duration // default: 10s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the crawl result cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached results.
	MaxEntries int // default: 200
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"

	// File enables an additional rotating log file.
	File       string
	MaxSizeMB  int // default: 50
	MaxBackups int // default: 3
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("FIELDSCOUT_HOST", "0.0.0.0"),
			Port: envIntOr("FIELDSCOUT_PORT", 8080),
			Mode: envOr("FIELDSCOUT_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("FIELDSCOUT_HEADLESS", true),
			MaxPages:     envIntOr("FIELDSCOUT_MAX_TABS", 4),
			DefaultProxy: os.Getenv("FIELDSCOUT_PROXY"),
			NoSandbox:    envBoolOr("FIELDSCOUT_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("FIELDSCOUT_BROWSER_BIN"),
		},
		Render: RenderConfig{
			Timeout:              envDurationOr("FIELDSCOUT_RENDER_TIMEOUT", 60*time.Second),
			SettleDelay:          envDurationOr("FIELDSCOUT_SETTLE_DELAY", 2*time.Second),
			Stealth:              envBoolOr("FIELDSCOUT_STEALTH", true),
			BlockAds:             envBoolOr("FIELDSCOUT_BLOCK_ADS", true),
			BlockedResourceTypes: envSliceOr("FIELDSCOUT_BLOCKED_RESOURCES", []string{"Media"}),
			ScreenshotDir:        envOr("FIELDSCOUT_SCREENSHOT_DIR", os.TempDir()),
			ViewportWidth:        envIntOr("FIELDSCOUT_VIEWPORT_WIDTH", 1920),
			ViewportHeight:       envIntOr("FIELDSCOUT_VIEWPORT_HEIGHT", 1080),
		},
		Crawl: CrawlConfig{
			CourtesyDelay:   envDurationOr("FIELDSCOUT_COURTESY_DELAY", time.Second),
			MaxCrawlTimeout: envDurationOr("FIELDSCOUT_MAX_CRAWL_TIMEOUT", time.Hour),
			StageTimeout:    envDurationOr("FIELDSCOUT_STAGE_TIMEOUT", 5*time.Minute),
		},
		Extract: ExtractConfig{
			QAMinScore:     envFloatOr("FIELDSCOUT_QA_MIN_SCORE", 0.3),
			WordOverlap:    envFloatOr("FIELDSCOUT_WORD_OVERLAP", 0.5),
			NameSimilarity: envFloatOr("FIELDSCOUT_NAME_SIMILARITY", 0.6),
			VocabularyFile: os.Getenv("FIELDSCOUT_VOCABULARY_FILE"),
		},
		LLM: LLMConfig{
			Provider: envOr("FIELDSCOUT_LLM_PROVIDER", ""),
			APIKey:   os.Getenv("FIELDSCOUT_LLM_API_KEY"),
			Model:    envOr("FIELDSCOUT_LLM_MODEL", "gpt-4o-mini"),
			BaseURL:  envOr("FIELDSCOUT_LLM_BASE_URL", "https://api.openai.com/v1"),
			Timeout:  envDurationOr("FIELDSCOUT_LLM_TIMEOUT", 20*time.Second),
		},
		QA: QAConfig{
			Provider:        envOr("FIELDSCOUT_QA_PROVIDER", "http"),
			Endpoint:        envOr("FIELDSCOUT_QA_ENDPOINT", "https://api-inference.huggingface.co/models/distilbert-base-cased-distilled-squad"),
			APIKey:          os.Getenv("FIELDSCOUT_QA_API_KEY"),
			Timeout:         envDurationOr("FIELDSCOUT_QA_TIMEOUT", 30*time.Second),
			MaxContextChars: envIntOr("FIELDSCOUT_QA_MAX_CONTEXT", 8000),
		},
		OCR: OCRConfig{
			Binary:    envOr("FIELDSCOUT_TESSERACT_BIN", "tesseract"),
			Languages: envOr("FIELDSCOUT_OCR_LANGUAGES", "ara+fra+eng"),
			Timeout:   envDurationOr("FIELDSCOUT_OCR_TIMEOUT", 60*time.Second),
		},
		NLP: NLPConfig{
			NERURL:  os.Getenv("FIELDSCOUT_NER_URL"),
			Timeout: envDurationOr("FIELDSCOUT_NER_TIMEOUT", 10*time.Second),
		},
		Vision: VisionConfig{
			DetectorURL: os.Getenv("FIELDSCOUT_DETECTOR_URL"),
			Timeout:     envDurationOr("FIELDSCOUT_DETECTOR_TIMEOUT", 60*time.Second),
			Padding:     envIntOr("FIELDSCOUT_DETECTOR_PADDING", 10),
			HTTPTimeout: envDurationOr("FIELDSCOUT_HTTP_TIMEOUT", 10*time.Second),
		},
		Geocode: GeocodeConfig{
			BaseURL:   envOr("FIELDSCOUT_GEOCODE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent: envOr("FIELDSCOUT_GEOCODE_USER_AGENT", "fieldscout"),
			RPS:       envFloatOr("FIELDSCOUT_GEOCODE_RPS", 1.0),
			Retries:   envIntOr("FIELDSCOUT_GEOCODE_RETRIES", 3),
			Timeout:   envDurationOr("FIELDSCOUT_GEOCODE_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("FIELDSCOUT_AUTH_ENABLED", true),
			APIKeys: envSliceOr("FIELDSCOUT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("FIELDSCOUT_RATE_RPS", 2.0),
			Burst:             envIntOr("FIELDSCOUT_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("FIELDSCOUT_CACHE_MAX_ENTRIES", 200),
		},
		Log: LogConfig{
			Level:      envOr("FIELDSCOUT_LOG_LEVEL", "info"),
			Format:     envOr("FIELDSCOUT_LOG_FORMAT", "json"),
			File:       os.Getenv("FIELDSCOUT_LOG_FILE"),
			MaxSizeMB:  envIntOr("FIELDSCOUT_LOG_MAX_SIZE_MB", 50),
			MaxBackups: envIntOr("FIELDSCOUT_LOG_MAX_BACKUPS", 3),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
