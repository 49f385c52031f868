package llm

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/tempora/internal/model"
)

// signalMarker links a phrase in a question to the temporal signal it expresses
type signalMarker struct {
	phrase   string
	signal   model.Signal
	interval bool // the constraint names a period rather than a point
}

// Multi-word phrases come first so "prior to" wins over "to"
var signalMarkers = []signalMarker{
	{phrase: "prior to", signal: model.SignalBefore},
	{phrase: "at the time of", signal: model.SignalOverlap, interval: true},
	{phrase: "before", signal: model.SignalBefore},
	{phrase: "until", signal: model.SignalBefore},
	{phrase: "after", signal: model.SignalAfter},
	{phrase: "following", signal: model.SignalAfter},
	{phrase: "since", signal: model.SignalAfter},
	{phrase: "during", signal: model.SignalOverlap, interval: true},
	{phrase: "while", signal: model.SignalOverlap, interval: true},
	{phrase: "when", signal: model.SignalOverlap},
}

var (
	startWords = map[string]bool{"start": true, "started": true, "begin": true, "began": true, "founded": true,
		"established": true, "become": true, "became": true, "join": true, "joined": true, "first": true}
	finishWords = map[string]bool{"end": true, "ended": true, "finish": true, "finished": true, "leave": true,
		"left": true, "dissolved": true, "last": true}
	stopWords = map[string]bool{"the": true, "a": true, "an": true, "of": true, "was": true, "is": true,
		"were": true, "are": true, "did": true, "does": true, "do": true, "what": true, "which": true,
		"who": true, "whom": true, "when": true, "where": true, "how": true, "many": true, "in": true,
		"on": true, "at": true, "for": true, "to": true, "by": true, "with": true, "he": true, "she": true,
		"it": true, "its": true, "his": true, "her": true, "their": true, "they": true, "and": true, "as": true}

	yearPattern = regexp.MustCompile(`\b\d{3,4}\b`)
)

// RuleFormGenerator derives a structured temporal form from surface cues.
// It is used when no LLM provider is configured.
type RuleFormGenerator struct{}

// GenerateForm returns the form for question
func (RuleFormGenerator) GenerateForm(ctx context.Context, question string) (model.StructuredTemporalForm, error) {
	words := questionWords(question)
	form := model.StructuredTemporalForm{
		AnswerType: answerType(words),
		Signal:     model.SignalOverlap,
		Category:   model.CategoryNonImplicit,
	}

	main := words
	if i, m, ok := findMarker(words); ok {
		form.Signal = m.signal
		main = words[:i]
		if clause := words[i+len(strings.Fields(m.phrase)):]; len(clause) > 0 && !yearPattern.MatchString(strings.Join(clause, " ")) {
			form.Category = model.CategoryImplicit
		}
	} else if strings.EqualFold(first(words), "when") {
		form.Signal = startFinishSignal(words)
	}

	form.Entity, form.Relation = entityRelation(main)
	return form, nil
}

// RuleSubquestionGenerator turns the clause after a temporal marker into
// "when <clause>"
type RuleSubquestionGenerator struct{}

// Generate returns the sub-question for question
func (RuleSubquestionGenerator) Generate(ctx context.Context, question string) (model.Subquestion, bool, error) {
	words := questionWords(question)
	i, m, ok := findMarker(words)
	if !ok {
		return model.Subquestion{}, false, nil
	}
	clause := words[i+len(strings.Fields(m.phrase)):]
	if len(clause) == 0 || yearPattern.MatchString(strings.Join(clause, " ")) {
		return model.Subquestion{}, false, nil
	}

	sq := model.Subquestion{Text: "when " + strings.Join(clause, " "), AnswerType: "date"}
	if m.interval {
		sq.AnswerType = model.AnswerTypeTimeInterval
	}
	return sq, true, nil
}

// questionWords splits a question into words without surrounding punctuation
func questionWords(question string) []string {
	fields := strings.Fields(question)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) && r != '\'' && r != '-'
		})
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}

// findMarker locates the first signal marker that does not open the question
func findMarker(words []string) (int, signalMarker, bool) {
	for i := 1; i < len(words); i++ {
		for _, m := range signalMarkers {
			parts := strings.Fields(m.phrase)
			if i+len(parts) > len(words) {
				continue
			}
			if strings.EqualFold(strings.Join(words[i:i+len(parts)], " "), m.phrase) {
				return i, m, true
			}
		}
	}
	return 0, signalMarker{}, false
}

func startFinishSignal(words []string) model.Signal {
	for _, w := range words {
		w = strings.ToLower(w)
		if startWords[w] {
			return model.SignalStart
		}
		if finishWords[w] {
			return model.SignalFinish
		}
	}
	return model.SignalOverlap
}

// answerType guesses the expected answer type from the question word
func answerType(words []string) string {
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
	}
	switch first(lower) {
	case "when":
		return "date"
	case "who", "whom", "whose":
		return "human"
	case "where":
		return "location"
	case "how":
		if len(lower) > 1 && (lower[1] == "many" || lower[1] == "much") {
			return "number"
		}
	case "what", "which":
		if len(lower) > 1 && !stopWords[lower[1]] {
			return lower[1]
		}
	}
	return "entity"
}

// entityRelation takes the longest capitalised run as the entity and the
// remaining content words as the relation
func entityRelation(words []string) (string, string) {
	bestStart, bestLen := -1, 0
	for i := 0; i < len(words); {
		if !isCapitalised(words[i]) || (i == 0 && stopWords[strings.ToLower(words[i])]) {
			i++
			continue
		}
		j := i
		for j < len(words) && (isCapitalised(words[j]) || isNumber(words[j])) {
			j++
		}
		if j-i > bestLen {
			bestStart, bestLen = i, j-i
		}
		i = j
	}

	var entity string
	if bestStart >= 0 {
		entity = strings.Join(words[bestStart:bestStart+bestLen], " ")
	}

	// "what team ..." already carries the answer type in its second word
	typeWord := -1
	if q := first(words); (q == "what" || q == "which") && len(words) > 1 {
		typeWord = 1
	}

	var relation []string
	for i, w := range words {
		if bestStart >= 0 && i >= bestStart && i < bestStart+bestLen {
			continue
		}
		lw := strings.ToLower(w)
		if i == typeWord || stopWords[lw] || yearPattern.MatchString(lw) {
			continue
		}
		relation = append(relation, lw)
	}
	if entity == "" && len(relation) > 0 {
		entity, relation = relation[0], relation[1:]
	}
	return entity, strings.Join(relation, " ")
}

func isCapitalised(w string) bool {
	for _, r := range w {
		return unicode.IsUpper(r)
	}
	return false
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return w != ""
}

func first(words []string) string {
	if len(words) == 0 {
		return ""
	}
	return strings.ToLower(words[0])
}
