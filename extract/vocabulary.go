// Package extract holds the content extractors that turn page text into
// field values: phone, email, website, industry, address and job title
// heuristics, plus the QA-backed fallback chain that fuses them per field.
package extract

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/use-agent/fieldscout/models"
)

// shortKeywordLen is the length up to which a keyword only matches as a
// whole word ("tel" must not match inside "hotel").
const shortKeywordLen = 4

// Vocabulary is the keyword material shared by the field parser, the
// extractors and the anchor selector. Keywords are compared after Fold, so
// they may be written with or without accents.
type Vocabulary struct {
	// Fields maps each field identifier to the prompt keywords selecting it.
	Fields map[string][]string `yaml:"fields"`

	PhoneLabels     []string `yaml:"phone_labels"`
	EmailLabels     []string `yaml:"email_labels"`
	IndustryLabels  []string `yaml:"industry_labels"`
	RoleLabels      []string `yaml:"role_labels"`
	AddressKeywords []string `yaml:"address_keywords"`

	// Stoplist holds anchor texts that are never entity candidates.
	Stoplist []string `yaml:"stoplist"`

	Placeholders Blocklist `yaml:"placeholders"`

	// PhoneFormats is ordered from most to least specific.
	PhoneFormats []PhoneFormat `yaml:"-"`
}

// DefaultVocabulary returns the built-in English/French vocabulary.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Fields: map[string][]string{
			string(models.FieldName): {
				"name", "full name", "contact name", "company name", "nom", "nom complet",
				"raison sociale", "person", "personne", "individu",
			},
			string(models.FieldPhone): {
				"phone", "telephone", "tel", "mobile", "cell", "gsm", "portable",
				"phone number", "contact number", "number", "numero", "numero de telephone",
			},
			string(models.FieldEmail): {
				"email", "e-mail", "mail", "courriel", "electronic mail",
				"adresse email", "adresse e-mail", "adresse mail", "adresse electronique",
			},
			string(models.FieldAddress): {
				"address", "adresse", "location", "localisation", "street", "rue",
				"lieu", "emplacement", "office", "bureau", "siege",
			},
			string(models.FieldDomain): {
				"domain", "domaine", "industry", "industrie", "sector", "secteur",
				"business area", "specialty", "specialite", "field of activity",
				"domaine d'activite", "secteur d'activite", "activite", "metier",
			},
			string(models.FieldWebsite): {
				"website", "web site", "site", "site web", "site internet", "web", "url",
				"homepage", "web address", "adresse web", "site de l'entreprise",
			},
			string(models.FieldPoste): {
				"poste", "position", "job", "job title", "title", "role", "function",
				"fonction", "titre", "occupation", "emploi",
			},
		},
		PhoneLabels: []string{
			"phone", "telephone", "tel", "tél", "mobile", "cell", "gsm", "portable", "mob", "fixe",
		},
		EmailLabels: []string{
			"email", "e-mail", "mail", "courriel",
		},
		IndustryLabels: []string{
			"secteur d'activite", "domaine d'activite", "secteur", "domaine", "industry",
			"industrie", "sector", "activite", "activity", "specialite", "specialty",
		},
		RoleLabels: []string{
			"poste", "role", "fonction", "position", "job title", "titre",
		},
		AddressKeywords: []string{
			"rue", "avenue", "av", "bp", "quartier", "route", "rte", "lot", "zone", "imm",
			"immeuble", "residence", "cite", "street", "st", "road", "rd", "blvd",
			"boulevard", "zip", "postal", "cedex", "km",
		},
		Stoplist: []string{
			"login", "signup", "home", "about", "contact",
			"connexion", "inscription", "accueil", "à propos",
		},
		Placeholders: DefaultBlocklist(),
		PhoneFormats: DefaultPhoneFormats(),
	}
}

// LoadVocabulary returns the default vocabulary overlaid with the YAML file
// at path. Sections present in the file replace the defaults; an empty path
// returns the defaults.
func LoadVocabulary(path string) (*Vocabulary, error) {
	v := DefaultVocabulary()
	if path == "" {
		return v, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	var overlay Vocabulary
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}

	for field, kws := range overlay.Fields {
		v.Fields[strings.ToLower(strings.TrimSpace(field))] = kws
	}
	replaceIfSet(&v.PhoneLabels, overlay.PhoneLabels)
	replaceIfSet(&v.EmailLabels, overlay.EmailLabels)
	replaceIfSet(&v.IndustryLabels, overlay.IndustryLabels)
	replaceIfSet(&v.RoleLabels, overlay.RoleLabels)
	replaceIfSet(&v.AddressKeywords, overlay.AddressKeywords)
	replaceIfSet(&v.Stoplist, overlay.Stoplist)
	replaceIfSet(&v.Placeholders.LocalParts, overlay.Placeholders.LocalParts)
	replaceIfSet(&v.Placeholders.Domains, overlay.Placeholders.Domains)
	replaceIfSet(&v.Placeholders.Addresses, overlay.Placeholders.Addresses)
	return v, nil
}

func replaceIfSet(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

// IsStopword reports whether an anchor text is on the stoplist.
func (v *Vocabulary) IsStopword(text string) bool {
	folded := Fold(strings.TrimSpace(text))
	for _, s := range v.Stoplist {
		if folded == Fold(s) {
			return true
		}
	}
	return false
}

// MatchFields returns the fields whose keywords appear in prompt, with the
// keywords that selected them. Keywords are matched longest first and a
// keyword lying wholly inside an earlier match is skipped, so "adresse
// email" selects email only while "phonemail" selects both phone and email.
func (v *Vocabulary) MatchFields(prompt string) map[models.Field][]string {
	type entry struct {
		kw    string
		field models.Field
	}
	var entries []entry
	for field, kws := range v.Fields {
		for _, kw := range kws {
			if kw = Fold(strings.TrimSpace(kw)); kw != "" {
				entries = append(entries, entry{kw: kw, field: models.Field(field)})
			}
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if len(entries[i].kw) != len(entries[j].kw) {
			return len(entries[i].kw) > len(entries[j].kw)
		}
		if entries[i].kw != entries[j].kw {
			return entries[i].kw < entries[j].kw
		}
		return entries[i].field < entries[j].field
	})

	text := Fold(prompt)
	consumed := make([]bool, len(text))
	hits := make(map[models.Field][]string)
	for _, e := range entries {
		for _, start := range keywordIndexes(text, e.kw, len(e.kw) <= shortKeywordLen) {
			end := start + len(e.kw)
			if spanCovered(consumed, start, end) {
				continue
			}
			for i := start; i < end; i++ {
				consumed[i] = true
			}
			if !containsString(hits[e.field], e.kw) {
				hits[e.field] = append(hits[e.field], e.kw)
			}
		}
	}
	return hits
}

// Fold lower-cases s and strips combining accents so that "Téléphone"
// and "telephone" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	return strings.NewReplacer("’", "'", "‘", "'").Replace(out)
}

// hasKeyword reports whether folded text contains any of keywords. Short
// keywords, or all of them when whole is set, must stand as separate words.
func hasKeyword(folded string, keywords []string, whole bool) bool {
	for _, kw := range keywords {
		kw = Fold(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if len(keywordIndexes(folded, kw, whole || len(kw) <= shortKeywordLen)) > 0 {
			return true
		}
	}
	return false
}

// keywordIndexes returns the byte offsets of kw in text.
func keywordIndexes(text, kw string, whole bool) []int {
	var out []int
	for from := 0; from <= len(text)-len(kw); {
		i := strings.Index(text[from:], kw)
		if i < 0 {
			break
		}
		start := from + i
		if !whole || atWordBoundary(text, start, start+len(kw)) {
			out = append(out, start)
		}
		from = start + 1
	}
	return out
}

// atWordBoundary reports whether text[start:end] is a whole word, allowing a
// trailing plural "s".
func atWordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, size := utf8.DecodeRuneInString(text[end:])
		if r == 's' {
			end += size
			if end == len(text) {
				return true
			}
			r, _ = utf8.DecodeRuneInString(text[end:])
		}
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// spanCovered reports whether every byte of [start, end) belongs to an
// earlier match. Partial overlap leaves the keyword eligible.
func spanCovered(consumed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if !consumed[i] {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// labeledLines returns the lines mentioning any of labels, in order.
func labeledLines(lines []string, labels []string) []string {
	var out []string
	for _, l := range lines {
		if hasKeyword(Fold(l), labels, false) {
			out = append(out, l)
		}
	}
	return out
}

// valueAfterLabel returns the trimmed text after the first colon of line
// when the text before it carries one of labels.
func valueAfterLabel(line string, labels []string) string {
	before, after, ok := strings.Cut(line, ":")
	if !ok {
		return ""
	}
	if !hasKeyword(Fold(before), labels, false) {
		return ""
	}
	return strings.Trim(strings.TrimSpace(after), " .;,|-")
}
