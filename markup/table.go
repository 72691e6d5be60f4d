// Package markup reads rendered HTML: tabular listings, entity-like anchors,
// page language and a readable-text fallback.
package markup

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/fieldscout/extract"
	"github.com/use-agent/fieldscout/models"
)

// Parse builds a queryable document from rawHTML.
func Parse(rawHTML string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ExtractTable maps the rows of the first <table> positionally onto fs:
// cell i fills field i, fields beyond the last cell stay empty. Rows
// without a name are dropped. It reports false when the page has no table
// or no named row, in which case anchors should be used instead.
func ExtractTable(doc *goquery.Document, fs models.FieldSet) ([]models.Record, bool) {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, false
	}

	var records []models.Record
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() == 0 {
			return
		}
		var rec models.Record
		for i, f := range fs {
			v := ""
			if i < cells.Length() {
				v = extract.CollapseSpace(extract.NodeText(cells.Eq(i), " "))
			}
			rec.Set(f, v)
		}
		if rec.Name != "" {
			records = append(records, rec)
		}
	})
	if len(records) == 0 {
		return nil, false
	}
	return records, true
}
