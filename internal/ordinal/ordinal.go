// Package ordinal detects ordinal expressions and normalizes them to ranks.
package ordinal

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/temporal"
)

var ordinalWords = []string{
	"first", "second", "third", "fourth", "fifth",
	"sixth", "seventh", "eighth", "ninth", "tenth",
	"eleventh", "twelfth", "thirteenth", "fourteenth", "fifteenth",
	"sixteenth", "seventeenth", "eighteenth", "nineteenth", "twentieth",
}

var (
	latestWords = map[string]bool{"latest": true, "newest": true, "last": true}
	oldestWords = map[string]bool{"oldest": true}

	numericOrdinalRe = regexp.MustCompile(`^([0-9]+)(st|nd|rd|th)$`)
)

// wordRank returns 1..20 for a spelled-out ordinal
func wordRank(lower string) (int, bool) {
	for i, w := range ordinalWords {
		if w == lower {
			return i + 1, true
		}
	}
	return 0, false
}

// AnnotateSentence tokenizes sentence and annotates its ordinals
func AnnotateSentence(sentence string) []model.OrdinalAnnotation {
	return Annotate(sentence, Tokenize(sentence))
}

// Annotate finds ordinal expressions among the tokens of sentence.
// Ordinals next to a month name, or followed by a superlative, are skipped.
func Annotate(sentence string, tokens []Token) []model.OrdinalAnnotation {
	var (
		out      []model.OrdinalAnnotation
		consumed = make(map[int]bool)
	)
	add := func(from, to int, rank model.Ordinal) {
		start, end := tokens[from].Start, tokens[to].End
		out = append(out, model.OrdinalAnnotation{
			Text:    sentence[start:end],
			Span:    model.TextSpan{Start: start, End: end},
			Ordinal: rank,
		})
	}

	for i, tok := range tokens {
		lower := strings.ToLower(tok.Text)

		// compounds such as forty-first
		if tok.Tag == TagCardinal && i+2 < len(tokens) && tokens[i+1].Tag == TagHyphen {
			if rank, ok := wordRank(strings.ToLower(tokens[i+2].Text)); ok {
				if base, ok := numberWords[lower]; ok {
					consumed[i+2] = true
					add(i, i+2, model.Ordinal(base+rank))
				}
			}
		}
		if consumed[i] {
			continue
		}

		if rank, ok := wordRank(lower); ok {
			if guarded(tokens, i) {
				add(i, i, model.Ordinal(rank))
			}
			continue
		}
		if m := numericOrdinalRe.FindStringSubmatch(lower); m != nil {
			rank, err := strconv.Atoi(m[1])
			if err == nil && guarded(tokens, i) {
				add(i, i, model.Ordinal(rank))
			}
			continue
		}

		switch {
		case latestWords[lower]:
			add(i, i, model.OrdinalLatest)
		case oldestWords[lower]:
			add(i, i, model.OrdinalOldest)
		case lower == "most" && i+1 < len(tokens):
			next := strings.ToLower(tokens[i+1].Text)
			if next == "recent" || next == "recently" {
				add(i, i+1, model.OrdinalLatest)
			}
		}
	}
	return out
}

// guarded reports whether the ordinal at i stands on its own: not part of a
// date ("May 3rd", "3rd May", "3rd of May") and not ranking a superlative
// ("first largest").
func guarded(tokens []Token, i int) bool {
	if i > 0 && temporal.IsMonth(tokens[i-1].Text) {
		return false
	}
	if i+1 < len(tokens) {
		next := tokens[i+1]
		if next.Tag == TagSuperlative || temporal.IsMonth(next.Text) {
			return false
		}
		if strings.EqualFold(next.Text, "of") && i+2 < len(tokens) && temporal.IsMonth(tokens[i+2].Text) {
			return false
		}
	}
	return true
}
