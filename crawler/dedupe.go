package crawler

import "github.com/use-agent/fieldscout/models"

// Dedupe keeps one record per name at the position the name first appeared.
// A later record replaces the kept one only when it carries a non-empty
// field the kept one lacks.
func Dedupe(records []models.Record) []models.Record {
	index := make(map[string]int, len(records))
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		i, seen := index[r.Name]
		if !seen {
			index[r.Name] = len(out)
			out = append(out, r)
			continue
		}
		if r.AddsTo(out[i]) {
			out[i] = r
		}
	}
	return out
}
