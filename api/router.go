// Package api wires the HTTP surface of fieldscout.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/fieldscout/api/handler"
	"github.com/use-agent/fieldscout/api/middleware"
	"github.com/use-agent/fieldscout/cache"
	"github.com/use-agent/fieldscout/config"
	"github.com/use-agent/fieldscout/webhook"
)

// jobTTL is how long finished jobs stay queryable.
const jobTTL = time.Hour

// Services are the backends the handlers call.
type Services struct {
	Runner   handler.Runner
	Parser   handler.FieldParser
	Geocoder handler.AddressGeocoder
	Pool     handler.PoolStatser
	Cache    *cache.Cache
	Webhooks *webhook.Sender
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// The health endpoint sits outside auth so monitoring probes always work.
func NewRouter(svc Services, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	jobs := handler.NewJobStore(jobTTL)

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(svc.Pool, jobs, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape", handler.PostScrape(svc.Runner, jobs, svc.Cache, svc.Webhooks))
	protected.GET("/scrape/:id", handler.GetScrape(jobs))
	protected.POST("/fields", handler.PostFields(svc.Parser))
	protected.POST("/geocode", handler.PostGeocode(svc.Geocoder))

	return r
}
