package vision

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/use-agent/fieldscout/extract"
	"github.com/use-agent/fieldscout/models"
)

// Link is a page anchor keyed by its lower-cased text.
type Link struct {
	Text string
	Href string
}

// PageLinks returns the anchors of doc that have both text and an href,
// with relative hrefs resolved against baseURL. The first anchor wins when
// several share the same text.
func PageLinks(doc *goquery.Document, baseURL string) []Link {
	base, _ := url.Parse(baseURL)
	seen := make(map[string]bool)
	var links []Link
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := strings.ToLower(extract.CollapseSpace(extract.NodeText(a, " ")))
		if text == "" || seen[text] {
			return
		}
		href, _ := a.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		if base != nil {
			u = base.ResolveReference(u)
		}
		seen[text] = true
		links = append(links, Link{Text: text, Href: u.String()})
	})
	return links
}

// MatchLink returns the href of the link whose text equals text, ignoring
// case, or else of the link with the highest word overlap when that overlap
// reaches minOverlap. It returns "" when nothing matches.
func MatchLink(text string, links []Link, minOverlap float64) string {
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))
	if text == "" {
		return ""
	}
	words := wordSet(text)

	best, bestRatio := "", 0.0
	for _, l := range links {
		if l.Text == text {
			return l.Href
		}
		if r := overlap(words, wordSet(l.Text)); r > bestRatio {
			best, bestRatio = l.Href, r
		}
	}
	if bestRatio >= minOverlap && bestRatio > 0 {
		return best
	}
	return ""
}

// overlap is the shared word count over the larger set's size.
func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	common := 0
	for w := range a {
		if _, ok := b[w]; ok {
			common++
		}
	}
	return float64(common) / float64(max(len(a), len(b)))
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

// Similarity is the case-insensitive Levenshtein similarity of a and b,
// from 0 (unrelated) to 1 (equal).
func Similarity(a, b string) float64 {
	lev := metrics.NewLevenshtein()
	lev.CaseSensitive = false
	return strutil.Similarity(strings.TrimSpace(a), strings.TrimSpace(b), lev)
}

// CrossValidate keeps the records whose name is more similar than
// threshold to at least one detected name. Records are returned unchanged
// and in their original order; records without a name are dropped.
func CrossValidate(records []models.Record, names []string, threshold float64) []models.Record {
	kept := make([]models.Record, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.Name) == "" {
			continue
		}
		best := 0.0
		for _, n := range names {
			if s := Similarity(rec.Name, n); s > best {
				best = s
			}
		}
		if best > threshold {
			kept = append(kept, rec)
		}
	}
	return kept
}
