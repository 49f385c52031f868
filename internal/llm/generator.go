package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/tempora/internal/model"
)

// slotSeparator separates the slots of a generated line
const slotSeparator = "||"

// SubquestionGenerator asks a provider for the explicit question behind an
// implicit temporal constraint
type SubquestionGenerator struct {
	provider Provider
	log      *zap.Logger
}

// NewSubquestionGenerator creates a generator backed by provider
func NewSubquestionGenerator(provider Provider) *SubquestionGenerator {
	return &SubquestionGenerator{
		provider: provider,
		log:      zap.L().With(zap.String("component", "subquestion"), zap.String("provider", provider.Name())),
	}
}

// Generate returns the sub-question for question. ok is false when the
// model output does not hold a question and an answer type.
func (g *SubquestionGenerator) Generate(ctx context.Context, question string) (model.Subquestion, bool, error) {
	resp, err := g.provider.Complete(ctx, CompletionRequest{
		Prompt:    fmt.Sprintf(subquestionPrompt, question),
		MaxTokens: 64,
	})
	if err != nil {
		return model.Subquestion{}, false, eris.Wrap(err, "generate sub-question")
	}

	sq, ok := ParseSubquestion(resp.Text)
	if !ok {
		g.log.Debug("unusable sub-question output", zap.String("output", resp.Text))
	}
	return sq, ok, nil
}

// ParseSubquestion reads "question||answer type" from the first non-empty
// line of text. Unknown answer types fall back to date.
func ParseSubquestion(text string) (model.Subquestion, bool) {
	line := firstLine(text)
	question, answerType, found := strings.Cut(line, slotSeparator)
	if !found {
		return model.Subquestion{}, false
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return model.Subquestion{}, false
	}

	answerType = strings.ToLower(strings.TrimSpace(answerType))
	if answerType != model.AnswerTypeTimeInterval {
		answerType = "date"
	}
	return model.Subquestion{Text: question, AnswerType: answerType}, true
}

// FormGenerator produces the structured temporal form of a question.
// Temporal values are left empty; they come from annotation and resolution.
type FormGenerator interface {
	GenerateForm(ctx context.Context, question string) (model.StructuredTemporalForm, error)
}

// ProviderFormGenerator asks a provider for the structured temporal form and
// falls back to rules when the output cannot be parsed
type ProviderFormGenerator struct {
	provider Provider
	fallback RuleFormGenerator
	log      *zap.Logger
}

// NewFormGenerator creates a form generator backed by provider
func NewFormGenerator(provider Provider) *ProviderFormGenerator {
	return &ProviderFormGenerator{
		provider: provider,
		log:      zap.L().With(zap.String("component", "tsf"), zap.String("provider", provider.Name())),
	}
}

// GenerateForm returns the form for question
func (g *ProviderFormGenerator) GenerateForm(ctx context.Context, question string) (model.StructuredTemporalForm, error) {
	resp, err := g.provider.Complete(ctx, CompletionRequest{
		Prompt:    fmt.Sprintf(formPrompt, question),
		MaxTokens: 96,
	})
	if err != nil {
		return model.StructuredTemporalForm{}, eris.Wrap(err, "generate temporal form")
	}

	form, ok := ParseForm(resp.Text)
	if !ok {
		g.log.Debug("unusable form output, using rules", zap.String("output", resp.Text))
		return g.fallback.GenerateForm(ctx, question)
	}
	return form, nil
}

// ParseForm reads "entity || relation || answer type || signal || category"
// from the first non-empty line of text. "No signal" reads as OVERLAP.
func ParseForm(text string) (model.StructuredTemporalForm, bool) {
	slots := strings.Split(firstLine(text), slotSeparator)
	if len(slots) < 5 {
		return model.StructuredTemporalForm{}, false
	}
	for i := range slots {
		slots[i] = strings.TrimSpace(slots[i])
	}

	signal := strings.TrimSpace(strings.ReplaceAll(slots[3], "No signal", ""))
	return model.StructuredTemporalForm{
		Entity:     slots[0],
		Relation:   slots[1],
		AnswerType: slots[2],
		Signal:     model.ParseSignal(signal),
		Category:   model.ParseCategory(slots[4]),
	}, true
}

// firstLine returns the first non-empty line with any "Output:" prefix removed
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "Output:"))
		if line != "" {
			return line
		}
	}
	return ""
}
