package markup

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/text/language"

	"github.com/use-agent/fieldscout/extract"
)

// defaultLanguage is used when neither markup nor text reveals a language.
const defaultLanguage = "en"

// DetectLanguage returns the page language as a base code: the <html lang>
// attribute when present, else a statistical guess from visibleText, else
// "en".
func DetectLanguage(doc *goquery.Document, visibleText string) string {
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		if lang = strings.TrimSpace(lang); lang != "" {
			if tag, err := language.Parse(lang); err == nil {
				base, _ := tag.Base()
				return base.String()
			}
			return strings.ToLower(lang)
		}
	}
	if strings.TrimSpace(visibleText) != "" {
		if info := whatlanggo.Detect(visibleText); info.IsReliable() {
			return info.Lang.Iso6391()
		}
	}
	return defaultLanguage
}

// VisibleText returns readable text for a page whose browser text came back
// empty: the readability article text, else the body text.
func VisibleText(rawHTML, pageURL string) string {
	if u, err := nurl.Parse(pageURL); err == nil {
		article, err := readability.FromReader(strings.NewReader(rawHTML), u)
		if err == nil && strings.TrimSpace(article.TextContent) != "" {
			return strings.TrimSpace(article.TextContent)
		}
		if err != nil {
			slog.Debug("readability failed", "url", pageURL, "error", err)
		}
	}

	doc, err := Parse(rawHTML)
	if err != nil {
		return ""
	}
	return extract.NodeText(doc.Find("body"), "\n")
}
