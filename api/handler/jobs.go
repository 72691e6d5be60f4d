package handler

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/fieldscout/models"
)

// JobStore holds background scrape jobs until they expire.
type JobStore struct {
	jobs sync.Map // id -> *models.ScrapeJob
	ttl  time.Duration
	now  func() time.Time
}

// NewJobStore creates a store whose jobs are dropped ttl after creation,
// and starts the expiry goroutine.
func NewJobStore(ttl time.Duration) *JobStore {
	s := &JobStore{ttl: ttl, now: time.Now}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			s.expire()
		}
	}()
	return s
}

// Create registers a new processing job.
func (s *JobStore) Create(webhookURL, webhookSecret string) *models.ScrapeJob {
	job := models.NewScrapeJob("scrape-"+randomID(), s.now().Unix())
	job.WebhookURL = webhookURL
	job.WebhookSecret = webhookSecret
	s.jobs.Store(job.ID, job)
	return job
}

// Get returns the job with id.
func (s *JobStore) Get(id string) (*models.ScrapeJob, bool) {
	v, ok := s.jobs.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*models.ScrapeJob), true
}

// Len counts the stored jobs.
func (s *JobStore) Len() int {
	n := 0
	s.jobs.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (s *JobStore) expire() {
	cutoff := s.now().Add(-s.ttl).Unix()
	s.jobs.Range(func(key, value any) bool {
		if value.(*models.ScrapeJob).CreatedAt < cutoff {
			s.jobs.Delete(key)
		}
		return true
	})
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
