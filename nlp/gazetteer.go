package nlp

import (
	"context"
	"strings"
	"unicode"
)

// orgMarkers are words that make a phrase an organisation name.
var orgMarkers = map[string][]string{
	"en": {
		"association", "club", "company", "corp", "corporation", "inc", "ltd", "llc",
		"foundation", "federation", "union", "institute", "university", "school",
		"group", "bank", "agency", "council", "society", "network", "center", "centre",
		"cooperative", "committee", "organization", "organisation", "ministry",
	},
	"fr": {
		"association", "asso", "club", "société", "societe", "sarl", "sa", "sas", "eurl",
		"fondation", "fédération", "federation", "union", "institut", "université",
		"universite", "école", "ecole", "groupe", "banque", "agence", "conseil",
		"coopérative", "cooperative", "comité", "comite", "centre", "réseau", "reseau",
		"ministère", "ministere", "entreprise", "cabinet", "syndicat", "amicale",
	},
	"ar": {
		"جمعية", "شركة", "مؤسسة", "نادي", "اتحاد", "جامعة", "مدرسة", "بنك", "وكالة",
		"مجلس", "منظمة", "وزارة", "مركز", "تعاونية",
	},
}

// Gazetteer is a rule-based model that labels a text ORG when one of its
// words is an organisation marker for the language family.
type Gazetteer struct {
	markers map[string]bool
}

// NewGazetteer builds the gazetteer for a family key. The "multi" family
// uses every marker list.
func NewGazetteer(key string) *Gazetteer {
	g := &Gazetteer{markers: make(map[string]bool)}
	lists := [][]string{orgMarkers[key]}
	if _, ok := orgMarkers[key]; !ok {
		lists = lists[:0]
		for _, l := range orgMarkers {
			lists = append(lists, l)
		}
	}
	for _, l := range lists {
		for _, m := range l {
			g.markers[strings.ToLower(m)] = true
		}
	}
	return g
}

// Entities returns the whole text as one ORG entity when it contains a
// marker word.
func (g *Gazetteer) Entities(_ context.Context, text string) ([]Entity, error) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if g.markers[w] {
			return []Entity{{Text: strings.TrimSpace(text), Label: LabelOrg}}, nil
		}
	}
	return nil, nil
}
