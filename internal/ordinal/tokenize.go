package ordinal

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Part-of-speech tags assigned by Tokenize. Only the tags the ordinal
// rules look at are distinguished.
const (
	TagCardinal    = "CD"    // 12, 1999, forty
	TagHyphen      = "HYPH"  // - inside a compound
	TagSuperlative = "JJS"   // largest, best
	TagPunct       = "PUNCT" // , . ; ( ) …
	TagOther       = "X"
)

// Token is a word with its byte offsets and tag
type Token struct {
	Text  string
	Tag   string
	Start int
	End   int
}

// numberWords are the cardinal words recognised as CD, with their values
var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"thirteen": 13, "fourteen": 14, "fifteen": 15, "sixteen": 16,
	"seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50, "sixty": 60,
	"seventy": 70, "eighty": 80, "ninety": 90, "hundred": 100,
}

// irregularSuperlatives do not end in -est
var irregularSuperlatives = map[string]bool{
	"best": true, "worst": true, "most": true, "least": true,
}

// estWords end in -est but are not superlatives
var estWords = map[string]bool{
	"interest": true, "forest": true, "request": true, "protest": true, "contest": true,
	"harvest": true, "suggest": true, "arrest": true, "invest": true, "manifest": true,
	"honest": true, "modest": true, "guest": true, "quest": true, "chest": true,
	"crest": true, "digest": true, "conquest": true, "everest": true, "budapest": true,
	"bucharest": true, "inquest": true, "midwest": true, "northwest": true, "southwest": true,
	"detest": true, "attest": true, "behest": true, "tempest": true, "earnest": true,
	"ingest": true, "unrest": true, "priest": true,
}

// Tokenize splits a sentence into tagged tokens. Letters joined by a hyphen
// are split into word, HYPH, word; digits joined by separators stay one token.
func Tokenize(sentence string) []Token {
	var (
		tokens []Token
		start  = -1
	)
	flush := func(end int) {
		if start >= 0 && end > start {
			text := sentence[start:end]
			tokens = append(tokens, Token{Text: text, Tag: tagWord(text), Start: start, End: end})
		}
		start = -1
	}
	emit := func(pos, size int, tag string) {
		tokens = append(tokens, Token{Text: sentence[pos : pos+size], Tag: tag, Start: pos, End: pos + size})
	}

	for i, r := range sentence {
		size := utf8.RuneLen(r)
		prev, _ := utf8.DecodeLastRuneInString(sentence[:i])
		next, _ := utf8.DecodeRuneInString(sentence[i+size:])

		switch {
		case unicode.IsSpace(r):
			flush(i)
		case r == '-':
			if start >= 0 && unicode.IsDigit(prev) && unicode.IsDigit(next) {
				continue
			}
			flush(i)
			emit(i, size, TagHyphen)
		case r == '.' || r == ',' || r == '/' || r == ':':
			if start >= 0 && unicode.IsDigit(prev) && unicode.IsDigit(next) {
				continue
			}
			flush(i)
			emit(i, size, TagPunct)
		case r == '\'' || r == '’':
			if start >= 0 && unicode.IsLetter(prev) && unicode.IsLetter(next) {
				continue
			}
			flush(i)
			emit(i, size, TagPunct)
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush(i)
			emit(i, size, TagPunct)
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(sentence))
	return tokens
}

func tagWord(text string) string {
	lower := strings.ToLower(text)
	if isCardinal(lower) {
		return TagCardinal
	}
	if isSuperlative(lower) {
		return TagSuperlative
	}
	return TagOther
}

func isCardinal(lower string) bool {
	if _, ok := numberWords[lower]; ok {
		return true
	}
	if lower == "" || !unicode.IsDigit(rune(lower[0])) {
		return false
	}
	for _, r := range lower {
		if !unicode.IsDigit(r) && r != '.' && r != ',' && r != '/' && r != '-' && r != ':' {
			return false
		}
	}
	return true
}

func isSuperlative(lower string) bool {
	if irregularSuperlatives[lower] {
		return true
	}
	return len(lower) >= 5 && strings.HasSuffix(lower, "est") && !estWords[lower]
}
