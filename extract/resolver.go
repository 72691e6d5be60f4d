package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/use-agent/fieldscout/models"
	"github.com/use-agent/fieldscout/qa"
)

// QA questions per field. Fields without an entry are asked about by name.
var questions = map[models.Field]string{
	models.FieldAddress: "What is the address of this organization?",
	models.FieldWebsite: "What is the website of this organization?",
	models.FieldDomain:  "What is the industry or sector of activity of this organization?",
	models.FieldPoste:   "What is the job title or position of the contact person?",
	models.FieldPhone:   "What is the phone number?",
	models.FieldEmail:   "What is the email address?",
}

// Question returns the QA question used for field f.
func Question(f models.Field) string {
	if q, ok := questions[f]; ok {
		return q
	}
	return fmt.Sprintf("What is the %s?", strings.ReplaceAll(string(f), "_", " "))
}

// Resolver fills the requested fields of a record from one PageContext.
// It is stateless between calls.
type Resolver struct {
	QA       qa.Answerer
	MinScore float64
	Vocab    *Vocabulary

	// Enhance, when set, rewrites each QA question before it is asked.
	Enhance func(question string) string
}

// NewResolver creates a resolver. A nil answerer disables the QA fallback.
func NewResolver(answerer qa.Answerer, minScore float64, vocab *Vocabulary) *Resolver {
	if answerer == nil {
		answerer = qa.Nop{}
	}
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Resolver{QA: answerer, MinScore: minScore, Vocab: vocab}
}

// Resolve returns a record holding every field of fs except name. A field
// whose extractors all fail is left empty.
func (r *Resolver) Resolve(ctx context.Context, pc models.PageContext, fs models.FieldSet) models.Record {
	var rec models.Record
	text := pc.Combined()
	lines := models.SplitLines(text)
	for _, f := range fs {
		if f == models.FieldName {
			continue
		}
		rec.Set(f, r.resolveField(ctx, f, pc, text, lines))
	}
	return rec
}

func (r *Resolver) resolveField(ctx context.Context, f models.Field, pc models.PageContext, text string, lines []string) (value string) {
	defer func() {
		if p := recover(); p != nil {
			slog.Warn("field extractor panicked", "field", f, "url", pc.URL, "panic", p)
			value = ""
		}
	}()

	switch f {
	case models.FieldPhone:
		// Phone numbers are only accepted when structurally valid, so the
		// model's free-form answer is not consulted.
		return r.Vocab.Phone(text)
	case models.FieldEmail:
		return r.Vocab.Email(text)
	case models.FieldAddress:
		if v := AddressTag(pc.HTML); v != "" {
			return v
		}
		if v := r.Vocab.AddressLine(lines); v != "" {
			return v
		}
	case models.FieldWebsite:
		if v := Website(text); v != "" {
			return v
		}
	case models.FieldDomain:
		if v := r.Vocab.Industry(lines); v != "" {
			return v
		}
	case models.FieldPoste:
		if v := r.Vocab.Role(lines); v != "" {
			return v
		}
	}
	return r.Ask(ctx, Question(f), text)
}

// Ask returns the QA answer when its score exceeds MinScore, or "".
func (r *Resolver) Ask(ctx context.Context, question, passage string) string {
	if r.QA == nil || strings.TrimSpace(passage) == "" {
		return ""
	}
	if r.Enhance != nil {
		question = r.Enhance(question)
	}
	ans, err := r.QA.Answer(ctx, question, passage)
	if err != nil {
		slog.Debug("qa fallback failed", "question", question, "error", err)
		return ""
	}
	if ans.Score <= r.MinScore {
		return ""
	}
	return strings.TrimSpace(ans.Text)
}
