package cache

import (
	"testing"
	"time"

	"github.com/use-agent/fieldscout/models"
)

func TestKey(t *testing.T) {
	two, three := 2, 3
	base := models.ScrapeRequest{URL: "https://a.tn", Prompt: "phone", MaxPages: &two}

	same := base
	same.Prompt = "  phone "
	if Key(&base) != Key(&same) {
		t.Error("surrounding prompt whitespace must not change the key")
	}

	variants := []func(r *models.ScrapeRequest){
		func(r *models.ScrapeRequest) { r.MaxPages = &three },
		func(r *models.ScrapeRequest) { r.MaxPages = nil },
		func(r *models.ScrapeRequest) { r.CrawlDetail = true },
		func(r *models.ScrapeRequest) { r.ValidateVision = true },
		func(r *models.ScrapeRequest) { r.Geocode = true },
		func(r *models.ScrapeRequest) { r.Prompt = "email" },
	}
	for i, mutate := range variants {
		r := base
		mutate(&r)
		if Key(&r) == Key(&base) {
			t.Errorf("variant %d produced the same key", i)
		}
	}
}

func TestGetSet(t *testing.T) {
	c := New(2)
	defer c.Stop()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	res := models.ScrapeStatusResponse{ID: "job-1", Status: models.JobCompleted}
	c.Set("k", res)

	if _, ok := c.Get("k", 0); ok {
		t.Error("max age 0 must miss")
	}
	if got, ok := c.Get("k", 1000); !ok || got.ID != "job-1" {
		t.Errorf("Get = %+v, %v", got, ok)
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k", 1000); ok {
		t.Error("stale entry must miss")
	}
	if _, ok := c.Get("k", 5000); !ok {
		t.Error("entry within a larger max age must hit")
	}
	if _, ok := c.Get("missing", 5000); ok {
		t.Error("unknown key must miss")
	}
}

func TestCapacityAndSweep(t *testing.T) {
	c := New(2)
	defer c.Stop()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", models.ScrapeStatusResponse{})
	c.Set("b", models.ScrapeStatusResponse{})
	c.Set("b", models.ScrapeStatusResponse{ID: "b2"})
	if c.Len() != 2 {
		t.Errorf("Len = %d after overwrite, want 2", c.Len())
	}
	c.Set("c", models.ScrapeStatusResponse{})
	if c.Len() != 2 {
		t.Errorf("Len = %d at capacity, want 2", c.Len())
	}

	now = now.Add(2 * time.Hour)
	c.sweep()
	if c.Len() != 0 {
		t.Errorf("Len = %d after sweep, want 0", c.Len())
	}
}
