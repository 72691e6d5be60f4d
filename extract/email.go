package extract

import (
	"regexp"
	"strings"

	"github.com/use-agent/fieldscout/models"
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// imageSuffixes catch retina asset names such as "logo@2x.png".
var imageSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}

// Blocklist describes placeholder and disposable email addresses.
type Blocklist struct {
	// LocalParts are rejected when they equal the part before "@".
	LocalParts []string `yaml:"local_parts"`

	// Domains are rejected when the address domain equals or is a
	// subdomain of one of them.
	Domains []string `yaml:"domains"`

	// Addresses are rejected verbatim.
	Addresses []string `yaml:"addresses"`
}

// DefaultBlocklist returns the built-in placeholder and disposable lists.
func DefaultBlocklist() Blocklist {
	return Blocklist{
		LocalParts: []string{
			"test", "example", "exemple", "email", "e-mail", "mail", "nom", "name",
			"user", "username", "someone", "ton-email", "votre-mail", "votre-email",
			"votremail", "your-email", "your.email", "youremail", "noreply", "no-reply",
			"donotreply", "do-not-reply", "prenom.nom", "firstname.lastname",
		},
		Domains: []string{
			"example.com", "example.org", "example.net", "exemple.com", "exemple.fr",
			"test.com", "domain.com", "yourdomain.com", "votredomaine.com", "email.com",
			"sentry.io", "wixpress.com", "sentry.wixpress.com",
			"mailinator.com", "yopmail.com", "guerrillamail.com", "10minutemail.com",
			"tempmail.com", "temp-mail.org", "trashmail.com", "throwawaymail.com",
			"sharklasers.com", "getnada.com", "dispostable.com",
		},
		Addresses: []string{
			"support@o2switch.fr",
		},
	}
}

// IsPlaceholder reports whether email is a template, test or disposable
// address rather than a real contact.
func (b Blocklist) IsPlaceholder(email string) bool {
	em := strings.ToLower(strings.TrimSpace(email))
	local, domain, ok := strings.Cut(em, "@")
	if !ok {
		return true
	}
	for _, a := range b.Addresses {
		if em == strings.ToLower(a) {
			return true
		}
	}
	for _, lp := range b.LocalParts {
		if local == strings.ToLower(lp) {
			return true
		}
	}
	for _, d := range b.Domains {
		d = strings.ToLower(d)
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	for _, s := range imageSuffixes {
		if strings.HasSuffix(domain, s) {
			return true
		}
	}
	return false
}

// IsPlaceholderEmail reports whether email is on the vocabulary blocklist.
func (v *Vocabulary) IsPlaceholderEmail(email string) bool {
	return v.Placeholders.IsPlaceholder(email)
}

// Email returns the first non-placeholder address in text, or "". Lines
// carrying an email label are searched first.
func (v *Vocabulary) Email(text string) string {
	for _, line := range labeledLines(models.SplitLines(text), v.EmailLabels) {
		if em := v.firstEmail(line); em != "" {
			return em
		}
	}
	return v.firstEmail(text)
}

func (v *Vocabulary) firstEmail(text string) string {
	for _, m := range emailPattern.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".")
		if !v.IsPlaceholderEmail(m) {
			return m
		}
	}
	return ""
}
