package extract

import (
	"regexp"
	"strings"

	"github.com/use-agent/fieldscout/models"
)

// PhoneFormat is one region-specific phone number shape.
type PhoneFormat struct {
	Name    string
	Pattern *regexp.Regexp

	// CountryCode is stripped from international matches.
	CountryCode string

	// TrunkPrefix is prepended to the national number when a country code
	// was stripped and the number does not already start with it.
	TrunkPrefix string

	// Length is the digit count of a valid national number.
	Length int

	// Leading lists the digits a valid national number may start with.
	Leading string
}

// DefaultPhoneFormats returns the Tunisian and French formats, most
// specific first.
func DefaultPhoneFormats() []PhoneFormat {
	return []PhoneFormat{
		{
			Name:        "tn-international",
			Pattern:     regexp.MustCompile(`(?:\+|00)\s*216[\s.\-]*\d{2}(?:[\s.\-]*\d){6}`),
			CountryCode: "216",
			Length:      8,
			Leading:     "234579",
		},
		{
			Name:        "fr-international",
			Pattern:     regexp.MustCompile(`(?:\+|00)\s*33[\s.\-]*(?:\(0\)[\s.\-]*)?[1-9](?:[\s.\-]*\d{2}){4}`),
			CountryCode: "33",
			TrunkPrefix: "0",
			Length:      10,
			Leading:     "0",
		},
		{
			Name:    "fr-national",
			Pattern: regexp.MustCompile(`0[1-9](?:[\s.\-]*\d{2}){4}`),
			Length:  10,
			Leading: "0",
		},
		{
			Name:    "tn-national",
			Pattern: regexp.MustCompile(`[2-9]\d(?:[\s.\-]*\d){6}`),
			Length:  8,
			Leading: "234579",
		},
	}
}

// digitRun is the last-resort scan over anything that looks like a number.
var digitRun = regexp.MustCompile(`\+?\d[\d\s.\-()]{5,}\d`)

// datePattern matches ISO and day-month-year dates, which share their shape
// with eight-digit national numbers.
var datePattern = regexp.MustCompile(`^(?:\d{4}-\d{2}-\d{2}|\d{2}[./-]\d{2}[./-]\d{4})$`)

// Phone returns the first structurally valid phone number in text as
// national digits, or "". Lines carrying a phone label are searched before
// the whole text.
func (v *Vocabulary) Phone(text string) string {
	for _, line := range labeledLines(models.SplitLines(text), v.PhoneLabels) {
		if p := v.matchPhone(line); p != "" {
			return p
		}
	}
	if p := v.matchPhone(text); p != "" {
		return p
	}
	for _, run := range digitRun.FindAllString(text, -1) {
		if datePattern.MatchString(strings.TrimSpace(run)) {
			continue
		}
		digits := onlyDigits(run)
		for _, f := range v.PhoneFormats {
			if n, ok := f.normalize(digits, strings.HasPrefix(run, "+") || strings.HasPrefix(digits, "00")); ok {
				return n
			}
		}
	}
	return ""
}

func (v *Vocabulary) matchPhone(text string) string {
	for _, f := range v.PhoneFormats {
		for _, loc := range f.Pattern.FindAllStringIndex(text, -1) {
			m := text[loc[0]:loc[1]]
			if !isolated(text, loc[0], loc[1]) || datePattern.MatchString(m) {
				continue
			}
			intl := strings.HasPrefix(m, "+") || strings.HasPrefix(m, "00")
			if n, ok := f.normalize(onlyDigits(m), intl); ok {
				return n
			}
		}
	}
	return ""
}

// normalize validates digits against the format and returns the national
// number.
func (f PhoneFormat) normalize(digits string, intl bool) (string, bool) {
	if intl {
		if f.CountryCode == "" {
			return "", false
		}
		digits = strings.TrimPrefix(digits, "00")
		if !strings.HasPrefix(digits, f.CountryCode) {
			return "", false
		}
		digits = digits[len(f.CountryCode):]
		if f.TrunkPrefix != "" && !strings.HasPrefix(digits, f.TrunkPrefix) {
			digits = f.TrunkPrefix + digits
		}
	} else if f.CountryCode != "" && len(digits) == len(f.CountryCode)+f.Length-len(f.TrunkPrefix) &&
		strings.HasPrefix(digits, f.CountryCode) {
		digits = f.TrunkPrefix + digits[len(f.CountryCode):]
	}
	if len(digits) != f.Length || !strings.ContainsRune(f.Leading, rune(digits[0])) {
		return "", false
	}
	return digits, true
}

// isolated reports whether text[start:end] is not glued to other digits,
// either directly or across a single separator. "22 33 44 55 66" holds no
// eight-digit number.
func isolated(text string, start, end int) bool {
	if start > 0 {
		if c := text[start-1]; isDigit(c) || c == '+' {
			return false
		}
		if start > 1 && isSeparator(text[start-1]) && isDigit(text[start-2]) {
			return false
		}
	}
	if end < len(text) {
		if isDigit(text[end]) {
			return false
		}
		if end+1 < len(text) && isSeparator(text[end]) && isDigit(text[end+1]) {
			return false
		}
	}
	return true
}

func isSeparator(c byte) bool { return c == ' ' || c == '.' || c == '-' || c == '\t' }

func onlyDigits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
