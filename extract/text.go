package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	websitePattern = regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s"'<>]+`)
	digitPattern   = regexp.MustCompile(`\d`)
	spaceRun       = regexp.MustCompile(`\s+`)
)

// Website returns the first http(s):// or www. token in text, or "".
func Website(text string) string {
	m := websitePattern.FindString(text)
	return strings.TrimRight(m, ".,;:!?)]}")
}

// Industry returns the value of the first "Secteur : ..." style line, or "".
// The result is the sector of activity, never a URL.
func (v *Vocabulary) Industry(lines []string) string {
	for _, l := range lines {
		if val := valueAfterLabel(l, v.IndustryLabels); val != "" {
			return val
		}
	}
	return ""
}

// Role returns the job title from the first line mentioning a role label.
// "Poste : Directeur" yields "Directeur"; a line without a colon is
// returned whole.
func (v *Vocabulary) Role(lines []string) string {
	for _, l := range lines {
		if !hasKeyword(Fold(l), v.RoleLabels, false) {
			continue
		}
		if val := valueAfterLabel(l, v.RoleLabels); val != "" {
			return val
		}
		return strings.TrimSpace(l)
	}
	return ""
}

// HasAddressKeyword reports whether s contains an address keyword as a
// whole word.
func (v *Vocabulary) HasAddressKeyword(s string) bool {
	return hasKeyword(Fold(s), v.AddressKeywords, true)
}

// IsAddressLine reports whether line carries an address keyword and a digit.
func (v *Vocabulary) IsAddressLine(line string) bool {
	return digitPattern.MatchString(line) && v.HasAddressKeyword(line)
}

// AddressLine returns the first line that looks like a postal address, or "".
func (v *Vocabulary) AddressLine(lines []string) string {
	for _, l := range lines {
		if v.IsAddressLine(l) {
			return strings.TrimSpace(l)
		}
	}
	return ""
}

// AddressTag returns the text of the first <address> element in rawHTML.
func AddressTag(rawHTML string) string {
	if strings.TrimSpace(rawHTML) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	sel := doc.Find("address").First()
	if sel.Length() == 0 {
		return ""
	}
	return CollapseSpace(NodeText(sel, " "))
}

// NodeText joins the non-empty text nodes under sel with sep, so that
// "<b>Acme</b><br>Tunis" reads as two words rather than "AcmeTunis".
func NodeText(sel *goquery.Selection, sep string) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, sep)
}

// CollapseSpace trims s and folds whitespace runs into single spaces.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
