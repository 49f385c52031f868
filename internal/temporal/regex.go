package temporal

import (
	"regexp"
	"strings"

	"github.com/ppiankov/tempora/internal/model"
)

type textPattern struct {
	format Format
	re     *regexp.Regexp
	padded bool // the pattern consumes the whitespace around the mention
}

// textPatterns are scanned in order over a sentence
var textPatterns = []textPattern{
	{format: FormatTextDMY, re: regexp.MustCompile(`[0-9]+ [A-Za-z]* [0-9]{4}`)},
	{format: FormatRange1, re: regexp.MustCompile(`\d{4},\s\w+\s\d{1,2}(?:–\w+\s)?\d{1,2}`)},
	{format: FormatRange2, re: regexp.MustCompile(`\d{4}–\d{4}`)},
	{format: FormatRange3, re: regexp.MustCompile(`\d{4},\s\w+\s\d{1,2}–\d{1,2}`)},
	{format: FormatRange4, re: regexp.MustCompile(`\d{1,2}\s\w+\s\d{4}\s–\s\d{4}`)},
	{format: FormatRange5, re: regexp.MustCompile(`\d{1,2}\s\w+\s\d{4}\s–\s\d{1,2}\s\w+\s\d{4}`)},
	{format: FormatRange6, re: regexp.MustCompile(`\w+\s\d{1,2},\s\d{4}\s–\s\w+\s\d{1,2},\s\d{4}`)},
	{format: FormatRange8, re: regexp.MustCompile(`\s\d{4}\suntil\s\d{4}\s`), padded: true},
	{format: FormatRange7, re: regexp.MustCompile(`\s\d{4}\sto\s\d{4}\s`), padded: true},
	{format: FormatMY, re: regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December|january|february|march|april|may|june|july|august|september|october|november|december)\s\d{4}\b`)},
	{format: FormatTextYMD, re: regexp.MustCompile(`[0-9]{4}, [A-Za-z]* [0-9]+`)},
	{format: FormatTextMDY, re: regexp.MustCompile(`[A-Za-z]* [0-9]+, [0-9]{4}`)},
}

const tokenPunctuation = ".;()[],"

// RegexAnnotator finds date mentions with regular expressions
type RegexAnnotator struct {
	tieBreak TieBreak
}

// NewRegexAnnotator creates an annotator resolving equal-length overlaps with tb
func NewRegexAnnotator(tb TieBreak) *RegexAnnotator {
	return &RegexAnnotator{tieBreak: tb}
}

// Annotate returns the date mentions of a sentence. Text-format and numeric
// mentions are merged so that overlapping mentions keep the longest one.
func (a *RegexAnnotator) Annotate(sentence string) []model.DateAnnotation {
	return MergeDates(TextDates(sentence), NumericDates(sentence), a.tieBreak)
}

// TextDates finds dates written with month names and the textual range formats
func TextDates(sentence string) []model.DateAnnotation {
	var dates []model.DateAnnotation
	for _, p := range textPatterns {
		for _, loc := range p.re.FindAllStringIndex(sentence, -1) {
			start, end := loc[0], loc[1]
			if p.padded {
				for start < end && isSpace(sentence[start]) {
					start++
				}
				for end > start && isSpace(sentence[end-1]) {
					end--
				}
			}
			text := sentence[start:end]
			ts, ok := Normalize(text, p.format)
			if !ok {
				continue
			}
			dates = append(dates, model.DateAnnotation{
				Text:            text,
				Span:            model.TextSpan{Start: start, End: end},
				Timespan:        ts,
				Method:          model.MethodRegex,
				Disambiguations: disambiguate(ts, p.format),
			})
		}
	}
	return dates
}

// NumericDates finds years and numeric dates among the space separated tokens
func NumericDates(sentence string) []model.DateAnnotation {
	var dates []model.DateAnnotation
	offset := 0
	for _, raw := range strings.Split(sentence, " ") {
		tokenStart := offset
		offset += len(raw) + 1

		token := strings.Trim(raw, tokenPunctuation)
		if token == "" {
			continue
		}
		start := tokenStart + strings.Index(raw, token)
		span := model.TextSpan{Start: start, End: start + len(token)}

		var (
			ts     model.Timespan
			format Format
			ok     bool
		)
		switch {
		case numYearRe.MatchString(token):
			ts, ok = Normalize(token, FormatYear)
			format = FormatYear
		case numYMDRe.MatchString(token):
			ts, ok = Normalize(token, FormatYMD)
			format = FormatYMD
		case numMDYRe.MatchString(token):
			format = FormatMDY
			if ts, ok = Normalize(token, FormatMDY); !ok {
				format = FormatDMY
				ts, ok = Normalize(token, FormatDMY)
			}
		}
		if !ok {
			continue
		}

		dates = append(dates, model.DateAnnotation{
			Text:            token,
			Span:            span,
			Timespan:        ts,
			Method:          model.MethodRegex,
			Disambiguations: disambiguate(ts, format),
		})
	}
	return dates
}

// disambiguate pairs the normalized dates of a mention with their KB timestamps
func disambiguate(ts model.Timespan, format Format) []model.Disambiguation {
	begin := model.Disambiguation{Mention: ts.Begin.Date(), ID: ts.Begin.KB()}
	switch format {
	case FormatYear:
		begin.Mention = strings.TrimSuffix(ts.Begin.Date(), "-01-01")
		return []model.Disambiguation{begin}
	case FormatRange1, FormatRange2, FormatRange3, FormatRange4, FormatRange5, FormatRange6, FormatRange7, FormatRange8:
		end := model.Disambiguation{Mention: ts.End.Date(), ID: ts.End.KB()}
		return []model.Disambiguation{begin, end}
	}
	return []model.Disambiguation{begin}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
