package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/fieldscout/cache"
	"github.com/use-agent/fieldscout/models"
	"github.com/use-agent/fieldscout/webhook"
)

// Runner executes one scrape request; pipeline.Pipeline in production.
type Runner interface {
	Run(ctx context.Context, req *models.ScrapeRequest) (models.ScrapeStatusResponse, error)
}

// PostScrape returns a handler for POST /api/v1/scrape.
//
// The crawl runs in the background; the response carries the job ID to
// poll. A cached result younger than max_age completes the job at once.
func PostScrape(runner Runner, jobs *JobStore, cc *cache.Cache, sender *webhook.Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		job := jobs.Create(req.WebhookURL, req.WebhookSecret)

		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(cache.Key(&req), req.MaxAge); hit {
				job.Update(func(s *models.ScrapeStatusResponse) {
					*s = cached
					s.ID = job.ID
				})
				c.JSON(http.StatusOK, models.ScrapeResponse{
					Success:     true,
					ID:          job.ID,
					Status:      models.JobCompleted,
					CacheStatus: "hit",
				})
				return
			}
		}

		go runJob(runner, job, req, cc, sender)

		c.JSON(http.StatusOK, models.ScrapeResponse{
			Success: true,
			ID:      job.ID,
			Status:  models.JobProcessing,
		})
	}
}

// GetScrape returns a handler for GET /api/v1/scrape/:id.
func GetScrape(jobs *JobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := jobs.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeJobNotFound,
					Message: "scrape job not found",
				},
			})
			return
		}
		c.JSON(http.StatusOK, job.Snapshot())
	}
}

// runJob is the background half of PostScrape.
func runJob(runner Runner, job *models.ScrapeJob, req models.ScrapeRequest, cc *cache.Cache, sender *webhook.Sender) {
	slog.Info("scrape job started", "id", job.ID, "url", req.URL, "crawl_detail", req.CrawlDetail)

	result, err := safeRun(runner, &req)
	if err != nil {
		detail := models.AsScrapeError(err).ToDetail()
		job.Update(func(s *models.ScrapeStatusResponse) {
			s.Status = models.JobFailed
			s.Error = detail
		})
		slog.Warn("scrape job failed", "id", job.ID, "error", err)
	} else {
		job.Update(func(s *models.ScrapeStatusResponse) {
			result.ID = s.ID
			*s = result
		})
		if cc != nil {
			cc.Set(cache.Key(&req), result)
		}
		slog.Info("scrape job completed", "id", job.ID, "records", len(result.Records))
	}

	if job.WebhookURL != "" && sender != nil {
		event := webhook.EventScrapeCompleted
		if err != nil {
			event = webhook.EventScrapeFailed
		}
		sender.Send(job.WebhookURL, job.WebhookSecret, &webhook.Event{
			Type:      event,
			JobID:     job.ID,
			Timestamp: time.Now().Unix(),
			Data:      job.Snapshot(),
		})
	}
}

// safeRun turns a panic in the pipeline into a failed job.
func safeRun(runner Runner, req *models.ScrapeRequest) (res models.ScrapeStatusResponse, err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("scrape pipeline panicked", "url", req.URL, "panic", p)
			err = models.NewScrapeError(models.ErrCodeInternal, "internal error during scrape", nil)
		}
	}()
	return runner.Run(context.Background(), req)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeGeocodeFailure:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeJobNotFound:
		return http.StatusNotFound // 404
	default:
		return http.StatusInternalServerError // 500
	}
}
