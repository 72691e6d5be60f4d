package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/use-agent/fieldscout/models"
)

func TestPhone(t *testing.T) {
	v := DefaultVocabulary()
	tests := []struct {
		name string
		text string
		want string
	}{
		{"french label with accents", "Téléphone: 22 33 44 55", "22334455"},
		{"tunisian international", "Tel: +216 71 234 567", "71234567"},
		{"french national", "Appelez le 01 23 45 67 89", "0123456789"},
		{"french international with trunk", "+33 (0)1 23 45 67 89", "0123456789"},
		{"french international mobile", "Mobile +33 6 12 34 56 78", "0612345678"},
		{"label wins over earlier number", "Siret 987 654 32\nTel: 22 33 44 55", "22334455"},
		{"no number", "Founded in 1999, 120 members", ""},
		{"glued digits rejected", "ID 1234567890123", ""},
		{"invalid leading digit", "Tel: 12 34 56 78", ""},
		{"parenthesised country code", "Appel (216) 98 765 432", "98765432"},
		{"last resort digit run", "N° 216 (98) 765-432", "98765432"},
		{"dotted date skipped", "Fondée le 25.12.2019. Contact: 71 234 567", "71234567"},
		{"iso date rejected", "Mis à jour le 2023-10-15", ""},
		{"trailing digit group rejected", "Tel: 22 33 44 55 66", ""},
		{"leading digit group rejected", "Ref 12 22 33 44 55", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Phone(tt.text); got != tt.want {
				t.Errorf("Phone(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	v := DefaultVocabulary()
	tests := []struct {
		name string
		text string
		want string
	}{
		{"placeholder only", "Contact: test@example.com", ""},
		{"labeled", "Email: contact@acme.tn", "contact@acme.tn"},
		{"skips no-reply", "Write to noreply@site.com or info@acme.tn", "info@acme.tn"},
		{"retina image name", "<img src=logo@2x.png>", ""},
		{"disposable domain", "jane@mailinator.com", ""},
		{"test local part", "test@acme.tn", ""},
		{"trailing dot", "Reach us at hello@acme.fr.", "hello@acme.fr"},
		{"hosting default", "support@o2switch.fr", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Email(tt.text); got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestBlocklist_IsPlaceholder(t *testing.T) {
	b := DefaultBlocklist()
	tests := []struct {
		email string
		want  bool
	}{
		{"test@example.com", true},
		{"someone@mail.example.org", true},
		{"votre-email@domaine.fr", true},
		{"contact@acme.tn", false},
		{"not-an-email", true},
	}
	for _, tt := range tests {
		if got := b.IsPlaceholder(tt.email); got != tt.want {
			t.Errorf("IsPlaceholder(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestMatchFields(t *testing.T) {
	v := DefaultVocabulary()
	tests := []struct {
		prompt string
		want   []models.Field
		absent []models.Field
	}{
		{"Get me the PHONE numbers", []models.Field{models.FieldPhone}, nil},
		{"adresse email et téléphone", []models.Field{models.FieldEmail, models.FieldPhone}, []models.Field{models.FieldAddress}},
		{"hotel names", []models.Field{models.FieldName}, []models.Field{models.FieldPhone}},
		{"site web et secteur d'activité", []models.Field{models.FieldWebsite, models.FieldDomain}, nil},
		{"smartphone", []models.Field{models.FieldPhone}, nil},
		{"phonemail", []models.Field{models.FieldPhone, models.FieldEmail}, nil},
		{"phonemploi", []models.Field{models.FieldPhone, models.FieldPoste}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			hits := v.MatchFields(tt.prompt)
			for _, f := range tt.want {
				if len(hits[f]) == 0 {
					t.Errorf("MatchFields(%q) missing %s, got %v", tt.prompt, f, hits)
				}
			}
			for _, f := range tt.absent {
				if len(hits[f]) > 0 {
					t.Errorf("MatchFields(%q) unexpectedly matched %s via %v", tt.prompt, f, hits[f])
				}
			}
		})
	}
}

func TestTextExtractors(t *testing.T) {
	v := DefaultVocabulary()

	if got := Website("Visit www.acme.tn."); got != "www.acme.tn" {
		t.Errorf("Website = %q, want %q", got, "www.acme.tn")
	}
	if got := v.Industry([]string{"Tunis", "Secteur d'activité : Agriculture"}); got != "Agriculture" {
		t.Errorf("Industry = %q, want %q", got, "Agriculture")
	}
	if got := v.Role([]string{"Fonction: Président"}); got != "Président" {
		t.Errorf("Role = %q, want %q", got, "Président")
	}
	if got := v.AddressLine([]string{"Lotus Group 2020", "15 avenue Habib Bourguiba, Tunis"}); got != "15 avenue Habib Bourguiba, Tunis" {
		t.Errorf("AddressLine = %q", got)
	}
	if got := AddressTag("<p>x</p><address>12 Rue de Marseille<br>Tunis</address>"); got != "12 Rue de Marseille Tunis" {
		t.Errorf("AddressTag = %q", got)
	}
	if got := AddressTag(""); got != "" {
		t.Errorf("AddressTag(empty) = %q, want empty", got)
	}
}

func TestIsStopword(t *testing.T) {
	v := DefaultVocabulary()
	for _, s := range []string{"Login", "LOGIN", "Accueil", "A propos", "à propos"} {
		if !v.IsStopword(s) {
			t.Errorf("IsStopword(%q) = false, want true", s)
		}
	}
	if v.IsStopword("Acme Corp") {
		t.Error("IsStopword(Acme Corp) = true, want false")
	}
}

func TestLoadVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	data := "stoplist:\n  - sign in\nfields:\n  phone:\n    - fon\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary: %v", err)
	}
	if !v.IsStopword("Sign In") {
		t.Error("overlay stoplist not applied")
	}
	if v.IsStopword("login") {
		t.Error("default stoplist should be replaced")
	}
	if len(v.MatchFields("fon please")[models.FieldPhone]) == 0 {
		t.Error("overlay phone keyword not applied")
	}
	if len(v.MatchFields("email")[models.FieldEmail]) == 0 {
		t.Error("fields absent from the overlay should keep their defaults")
	}

	if _, err := LoadVocabulary(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
