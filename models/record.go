package models

import "strings"

// Field is a canonical field identifier.
type Field string

// Canonical field vocabulary.
//
// FieldDomain holds the industry or sector of activity; the site URL lives in
// FieldWebsite. Both names are part of the external output contract.
const (
	FieldName    Field = "name"
	FieldPhone   Field = "phone"
	FieldEmail   Field = "email"
	FieldAddress Field = "address"
	FieldDomain  Field = "domain"
	FieldWebsite Field = "website"
	FieldPoste   Field = "poste"
)

// CanonicalFields lists the vocabulary in output order.
var CanonicalFields = []Field{
	FieldName, FieldPhone, FieldEmail, FieldAddress, FieldDomain, FieldWebsite, FieldPoste,
}

// IsCanonical reports whether f belongs to the fixed vocabulary.
func (f Field) IsCanonical() bool {
	for _, c := range CanonicalFields {
		if c == f {
			return true
		}
	}
	return false
}

// FieldSet is an ordered set of target fields.
type FieldSet []Field

// Contains reports whether the set includes f.
func (fs FieldSet) Contains(f Field) bool {
	for _, x := range fs {
		if x == f {
			return true
		}
	}
	return false
}

// Without returns a copy of the set with f removed.
func (fs FieldSet) Without(f Field) FieldSet {
	out := make(FieldSet, 0, len(fs))
	for _, x := range fs {
		if x != f {
			out = append(out, x)
		}
	}
	return out
}

// Strings returns the field identifiers as plain strings.
func (fs FieldSet) Strings() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

// Record is one extracted entity. All canonical fields are always present
// (empty string when nothing was found); fields outside the vocabulary are
// kept in Extra.
type Record struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Domain  string `json:"domain"`
	Website string `json:"website"`
	Poste   string `json:"poste"`

	Extra map[string]string `json:"extra,omitempty"`

	// DetailURL is the candidate's detail-page link, when it had one.
	DetailURL string `json:"detail_url,omitempty"`

	// Latitude and Longitude are set by the geocoding pass.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Get returns the value stored for f.
func (r *Record) Get(f Field) string {
	switch f {
	case FieldName:
		return r.Name
	case FieldPhone:
		return r.Phone
	case FieldEmail:
		return r.Email
	case FieldAddress:
		return r.Address
	case FieldDomain:
		return r.Domain
	case FieldWebsite:
		return r.Website
	case FieldPoste:
		return r.Poste
	default:
		return r.Extra[string(f)]
	}
}

// Set stores v under f.
func (r *Record) Set(f Field, v string) {
	switch f {
	case FieldName:
		r.Name = v
	case FieldPhone:
		r.Phone = v
	case FieldEmail:
		r.Email = v
	case FieldAddress:
		r.Address = v
	case FieldDomain:
		r.Domain = v
	case FieldWebsite:
		r.Website = v
	case FieldPoste:
		r.Poste = v
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[string(f)] = v
	}
}

// Merge copies every non-empty value of other into r, except the name.
// Existing values are only overwritten by non-empty ones.
func (r *Record) Merge(other Record) {
	for _, f := range CanonicalFields {
		if f == FieldName {
			continue
		}
		if v := other.Get(f); v != "" {
			r.Set(f, v)
		}
	}
	for k, v := range other.Extra {
		if v != "" {
			r.Set(Field(k), v)
		}
	}
	if other.DetailURL != "" {
		r.DetailURL = other.DetailURL
	}
}

// valueFields lists every non-name field identifier holding a value.
func (r *Record) valueFields() []Field {
	var out []Field
	for _, f := range CanonicalFields {
		if f != FieldName && r.Get(f) != "" {
			out = append(out, f)
		}
	}
	for k, v := range r.Extra {
		if v != "" {
			out = append(out, Field(k))
		}
	}
	return out
}

// AddsTo reports whether r carries a non-empty non-name field that base lacks.
func (r *Record) AddsTo(base Record) bool {
	for _, f := range r.valueFields() {
		if base.Get(f) == "" {
			return true
		}
	}
	return false
}

// Candidate is an entity-like anchor or table row found on a page.
type Candidate struct {
	Name string

	// Href is the absolute detail-page URL, empty when the anchor had none.
	Href string

	// ParentText is the text of the anchor's parent element.
	ParentText string
}

// PageContext is the fused text available for extraction from one page.
type PageContext struct {
	URL     string
	HTML    string
	Text    string
	OCRText string
}

// Combined returns visible text followed by OCR text.
func (pc PageContext) Combined() string {
	if pc.OCRText == "" {
		return pc.Text
	}
	return pc.Text + "\n" + pc.OCRText
}

// Lines returns the non-empty, trimmed lines of the combined text.
func (pc PageContext) Lines() []string {
	return SplitLines(pc.Combined())
}

// SplitLines splits text into trimmed non-empty lines.
func SplitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Snapshot is the output of rendering one URL.
type Snapshot struct {
	URL            string
	HTML           string
	VisibleText    string
	ScreenshotPath string
	Title          string
}

// Empty reports whether the render produced no markup.
func (s *Snapshot) Empty() bool {
	return s == nil || strings.TrimSpace(s.HTML) == ""
}
