package markup

import (
	"context"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/fieldscout/extract"
	"github.com/use-agent/fieldscout/models"
	"github.com/use-agent/fieldscout/nlp"
)

// minCandidateLen is the shortest anchor text considered an entity name.
const minCandidateLen = 3

// navRegions are the page chrome regions whose links are never entities.
var navRegions = cascadia.MustCompile("header, nav, footer")

// Selector picks entity-like anchors from a page.
type Selector struct {
	Models *nlp.Cache
	Vocab  *extract.Vocabulary
}

// NewSelector creates a selector. A nil cache uses the built-in gazetteers.
func NewSelector(cache *nlp.Cache, vocab *extract.Vocabulary) *Selector {
	if cache == nil {
		cache = nlp.NewCache(nlp.GazetteerLoader)
	}
	if vocab == nil {
		vocab = extract.DefaultVocabulary()
	}
	return &Selector{Models: cache, Vocab: vocab}
}

// Select returns the candidates found in the page's main region, in
// document order. lang picks the entity model.
func (s *Selector) Select(ctx context.Context, doc *goquery.Document, baseURL, lang string) []models.Candidate {
	base, _ := url.Parse(baseURL)
	model := s.Models.Get(lang)

	var out []models.Candidate
	regionAnchors(doc).Each(func(_ int, a *goquery.Selection) {
		name := extract.CollapseSpace(extract.NodeText(a, " "))
		if !s.Accept(ctx, model, name) {
			return
		}
		href, _ := a.Attr("href")
		out = append(out, models.Candidate{
			Name:       name,
			Href:       resolveHref(base, href),
			ParentText: extract.NodeText(a.Parent(), "\n"),
		})
	})
	return out
}

// Accept reports whether text names an entity: long enough, not on the
// stoplist, and either an organisation per model or mostly capitalised.
func (s *Selector) Accept(ctx context.Context, model nlp.Model, text string) bool {
	if utf8.RuneCountInString(text) < minCandidateLen {
		return false
	}
	if s.Vocab.IsStopword(text) {
		return false
	}
	return nlp.HasOrg(ctx, model, text) || Capitalized(text)
}

// Capitalized reports whether text has at least two words and at least half
// of them start with an upper-case letter.
func Capitalized(text string) bool {
	tokens := strings.Fields(text)
	if len(tokens) < 2 {
		return false
	}
	upper := 0
	for _, tok := range tokens {
		r, _ := utf8.DecodeRuneInString(tok)
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return upper*2 >= len(tokens)
}

// regionAnchors returns the anchors of <main>, else of div#main, else every
// anchor outside header, nav and footer. A region without anchors falls
// through to the next one.
func regionAnchors(doc *goquery.Document) *goquery.Selection {
	if a := doc.Find("main").First().Find("a"); a.Length() > 0 {
		return a
	}
	if a := doc.Find("div#main").First().Find("a"); a.Length() > 0 {
		return a
	}
	return doc.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return !insideNav(a.Nodes[0])
	})
}

func insideNav(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && navRegions.Match(p) {
			return true
		}
	}
	return false
}

// resolveHref returns href as an absolute http(s) URL without fragment, or
// "" for in-page, mailto:, tel: and script links.
func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}
