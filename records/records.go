// Package records sorts crawled records into the raw, contact and location
// exports.
package records

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/use-agent/fieldscout/extract"
	"github.com/use-agent/fieldscout/models"
)

const (
	minPhoneDigits   = 5
	minAddressLength = 10
)

var (
	nonDigit   = regexp.MustCompile(`\D`)
	validEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// Categories splits one crawl result three ways.
type Categories struct {
	// Raw is every record.
	Raw []models.Record `json:"raw"`

	// Contact holds records with a usable phone or email.
	Contact []models.Record `json:"contact"`

	// Location holds records with a usable phone and address.
	Location []models.Record `json:"location"`
}

// Categorizer applies the validity rules using a vocabulary for placeholder
// emails and address keywords.
type Categorizer struct {
	Vocab *extract.Vocabulary
}

// NewCategorizer creates a categorizer; a nil vocabulary uses the defaults.
func NewCategorizer(vocab *extract.Vocabulary) *Categorizer {
	if vocab == nil {
		vocab = extract.DefaultVocabulary()
	}
	return &Categorizer{Vocab: vocab}
}

// Categorize sorts records. The slices are never nil.
func (c *Categorizer) Categorize(records []models.Record) Categories {
	cat := Categories{
		Raw:      make([]models.Record, 0, len(records)),
		Contact:  []models.Record{},
		Location: []models.Record{},
	}
	for _, r := range records {
		cat.Raw = append(cat.Raw, r)
		phone := ValidPhone(r.Phone)
		if phone || c.ValidEmail(r.Email) {
			cat.Contact = append(cat.Contact, r)
		}
		if phone && c.ValidAddress(r.Address) {
			cat.Location = append(cat.Location, r)
		}
	}
	slog.Debug("records categorized", "raw", len(cat.Raw), "contact", len(cat.Contact), "location", len(cat.Location))
	return cat
}

// ValidPhone reports whether phone has at least five digits.
func ValidPhone(phone string) bool {
	return len(nonDigit.ReplaceAllString(phone, "")) >= minPhoneDigits
}

// ValidEmail reports whether email is well formed and not a placeholder.
func (c *Categorizer) ValidEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail.MatchString(email) {
		return false
	}
	return !c.Vocab.IsPlaceholderEmail(email)
}

// ValidAddress reports whether address is long enough and names a street
// type, postal box or similar.
func (c *Categorizer) ValidAddress(address string) bool {
	address = strings.TrimSpace(address)
	if utf8.RuneCountInString(address) < minAddressLength {
		return false
	}
	return c.Vocab.HasAddressKeyword(address)
}
