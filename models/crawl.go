package models

import "sync"

// Job statuses.
const (
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// ScrapeJob tracks a background crawl started through the API.
// It is updated by the worker goroutine and read by status handlers,
// so all access goes through its methods.
type ScrapeJob struct {
	ID            string
	CreatedAt     int64 // unix timestamp
	WebhookURL    string
	WebhookSecret string

	mu     sync.RWMutex
	status ScrapeStatusResponse
}

// NewScrapeJob creates a job in the processing state.
func NewScrapeJob(id string, createdAt int64) *ScrapeJob {
	return &ScrapeJob{
		ID:        id,
		CreatedAt: createdAt,
		status: ScrapeStatusResponse{
			ID:      id,
			Status:  JobProcessing,
			Records: []Record{},
		},
	}
}

// Snapshot returns a copy of the job's current status.
func (j *ScrapeJob) Snapshot() ScrapeStatusResponse {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Update applies fn to the job status under the write lock.
func (j *ScrapeJob) Update(fn func(s *ScrapeStatusResponse)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.status)
}
