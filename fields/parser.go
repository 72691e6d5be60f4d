// Package fields interprets a free-text prompt into the ordered set of
// fields to extract.
package fields

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/use-agent/fieldscout/extract"
	"github.com/use-agent/fieldscout/llm"
	"github.com/use-agent/fieldscout/models"
)

// Interpreter maps a prompt to fields with an external model.
type Interpreter interface {
	Interpret(ctx context.Context, prompt string) (*Interpretation, error)
}

// Interpretation is the structured reading of a prompt.
type Interpretation struct {
	// Fields marks which canonical fields the prompt asks for.
	Fields map[string]bool `json:"fields"`

	// Custom lists requested fields outside the vocabulary.
	Custom []string `json:"custom"`
}

// Parser turns prompts into FieldSets. Interp is optional.
type Parser struct {
	Interp Interpreter
	Vocab  *extract.Vocabulary
}

// NewParser creates a parser. A nil interpreter leaves keyword matching as
// the only strategy.
func NewParser(interp Interpreter, vocab *extract.Vocabulary) *Parser {
	if vocab == nil {
		vocab = extract.DefaultVocabulary()
	}
	return &Parser{Interp: interp, Vocab: vocab}
}

// Parse returns the fields requested by prompt, name first, then the
// canonical fields in vocabulary order, then custom fields. It never fails:
// interpreter errors fall back to keyword matching and an empty match
// yields {name}.
func (p *Parser) Parse(ctx context.Context, prompt string) models.FieldSet {
	hits := p.Vocab.MatchFields(prompt)

	selected := make(map[models.Field]bool, len(hits))
	for f := range hits {
		selected[f] = true
	}

	var custom []string
	if p.Interp != nil {
		interp, err := p.Interp.Interpret(ctx, prompt)
		switch {
		case err != nil:
			slog.Warn("prompt interpretation failed, using keywords", "error", err)
		case interp == nil || interp.empty():
			slog.Debug("prompt interpretation empty, using keywords")
		default:
			for name, want := range interp.Fields {
				if want {
					selected[normalizeField(name)] = true
				}
			}
			custom = interp.Custom
		}
	}

	fs := models.FieldSet{models.FieldName}
	for _, f := range models.CanonicalFields {
		if f != models.FieldName && selected[f] {
			fs = append(fs, f)
		}
	}

	var extra []models.Field
	for f := range selected {
		if !f.IsCanonical() && f != "" {
			extra = append(extra, f)
		}
	}
	for _, c := range custom {
		if f := normalizeField(c); f != "" && !f.IsCanonical() && !containsField(extra, f) {
			extra = append(extra, f)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(fs, extra...)
}

// Explain returns the prompt keywords that selected each field.
func (p *Parser) Explain(prompt string) map[string][]string {
	hits := p.Vocab.MatchFields(prompt)
	out := make(map[string][]string, len(hits))
	for f, kws := range hits {
		out[string(f)] = kws
	}
	return out
}

var fieldDescriptions = map[models.Field]string{
	models.FieldName:    "the full name of the person or organization",
	models.FieldPhone:   "the phone number or contact number",
	models.FieldEmail:   "the email address",
	models.FieldAddress: "the complete address or location",
	models.FieldDomain:  "the industry or field of activity",
	models.FieldWebsite: "the website or web address",
	models.FieldPoste:   "the job position or role",
}

// Enhance appends what the question is looking for, based on the fields
// its wording mentions.
func (p *Parser) Enhance(question string) string {
	hits := p.Vocab.MatchFields(question)
	var parts []string
	for _, f := range models.CanonicalFields {
		if _, ok := hits[f]; ok {
			parts = append(parts, fieldDescriptions[f])
		}
	}
	if len(parts) == 0 {
		return question
	}
	return fmt.Sprintf("%s (looking for %s)", question, strings.Join(parts, ", "))
}

func (i *Interpretation) empty() bool {
	for _, want := range i.Fields {
		if want {
			return false
		}
	}
	return len(i.Custom) == 0
}

var nonIdent = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeField maps model output such as "Job Title" or "industry" onto
// field identifiers.
func normalizeField(name string) models.Field {
	id := strings.Trim(nonIdent.ReplaceAllString(extract.Fold(name), "_"), "_")
	switch id {
	case "job_title", "title", "position", "role", "job":
		return models.FieldPoste
	case "industry", "sector":
		return models.FieldDomain
	case "url", "site", "web", "site_web":
		return models.FieldWebsite
	case "telephone", "tel", "phone_number", "mobile":
		return models.FieldPhone
	case "mail", "e_mail", "courriel":
		return models.FieldEmail
	case "adresse", "location":
		return models.FieldAddress
	case "nom":
		return models.FieldName
	}
	return models.Field(id)
}

func containsField(fs []models.Field, f models.Field) bool {
	for _, x := range fs {
		if x == f {
			return true
		}
	}
	return false
}

const interpretSystemPrompt = `You map a scraping request to output fields.
Canonical fields: name (entity name), phone, email, address, domain (industry or sector of activity, NOT a URL), website (URL), poste (job title of the contact person).
Reply with JSON: {"fields": {"name": bool, "phone": bool, "email": bool, "address": bool, "domain": bool, "website": bool, "poste": bool}, "custom": ["other requested field names in snake_case"]}.`

// LLMInterpreter asks a chat model for the field mapping.
type LLMInterpreter struct {
	LLM llm.Completer
}

// Interpret returns the model's mapping. Malformed JSON is repaired before
// decoding.
func (l *LLMInterpreter) Interpret(ctx context.Context, prompt string) (*Interpretation, error) {
	if l.LLM == nil {
		return nil, errors.New("no language model configured")
	}
	resp, err := l.LLM.Complete(ctx, llm.CompletionRequest{
		System:    interpretSystemPrompt,
		User:      prompt,
		JSON:      true,
		MaxTokens: 300,
	})
	if err != nil {
		return nil, err
	}

	repaired, err := jsonrepair.JSONRepair(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("repair interpretation: %w", err)
	}
	var out Interpretation
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, fmt.Errorf("decode interpretation: %w", err)
	}
	return &out, nil
}
