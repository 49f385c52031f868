package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/tempora/internal/model"
)

// TIMEX value layouts produced by the date-tagging service
var (
	timexYMDRe          = regexp.MustCompile(`^-?[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
	timexYearRe         = regexp.MustCompile(`^-?[0-9]{4}$`)
	timexYMRe           = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}$`)
	timexPeriodYearRe   = regexp.MustCompile(`^P([0-9]{4})Y$`)
	timexIntersectYear  = regexp.MustCompile(`^THIS P1Y INTERSECT ([0-9]{4})$`)
	timexIntersectYMD   = regexp.MustCompile(`^THIS P1Y INTERSECT ([0-9]{4}-[0-9]{2}-[0-9]{2})$`)
	timexYearSeasonRe   = regexp.MustCompile(`^([0-9]{4})-(SP|SU|FA|WI)$`)
	timexDecadeRe       = regexp.MustCompile(`^([0-9]{3})X$`)
	timexCenturyRe      = regexp.MustCompile(`^([0-9]{2})XX$`)
	signalWordsRe       = regexp.MustCompile(`\b(before|after|prior to|in|start|begin|beginning|end)\b`)
	genericYearPhraseRe = regexp.MustCompile(`^(years|yearly|year|the years|the year|month of the year|the same year|the same day|the day|summer|winter|spring|autumn|fall)$`)
)

// Tag types returned by the date-tagging service
const (
	TagDate     = "DATE"
	TagDuration = "DURATION"
)

// NormalizeTimex converts one TIMEX value into a label and a timespan.
// reference is the YYYY-MM-DD date PRESENT_REF is resolved against.
func NormalizeTimex(value, reference string) (string, model.Timespan, bool) {
	value = strings.TrimSpace(value)

	switch {
	case timexYMDRe.MatchString(value):
		ts, ok := model.ParseTimestamp(value)
		if !ok {
			return "", model.Timespan{}, false
		}
		return value, model.PointSpan(ts), true
	case timexYearRe.MatchString(value):
		y, _ := strconv.Atoi(value)
		return value, YearSpan(y), true
	case timexYMRe.MatchString(value):
		ts, ok := Normalize(value, FormatYM)
		return value, ts, ok
	}

	if m := timexPeriodYearRe.FindStringSubmatch(value); m != nil {
		y, _ := strconv.Atoi(m[1])
		return m[1], YearSpan(y), true
	}
	if m := timexIntersectYear.FindStringSubmatch(value); m != nil {
		y, _ := strconv.Atoi(m[1])
		return m[1], YearSpan(y), true
	}
	if m := timexIntersectYMD.FindStringSubmatch(value); m != nil {
		ts, ok := model.ParseTimestamp(m[1])
		if !ok {
			return "", model.Timespan{}, false
		}
		return m[1], model.PointSpan(ts), true
	}
	if strings.Contains(value, "PRESENT_REF") {
		y, ok := referenceYear(reference)
		if !ok {
			return "", model.Timespan{}, false
		}
		return reference, YearSpan(y), true
	}
	if m := timexYearSeasonRe.FindStringSubmatch(value); m != nil {
		y, _ := strconv.Atoi(m[1])
		return m[1], YearSpan(y), true
	}
	if m := timexDecadeRe.FindStringSubmatch(value); m != nil {
		first, _ := strconv.Atoi(m[1] + "0")
		return m[1] + "0", model.Timespan{Begin: model.NewDate(first, 1, 1), End: model.NewDate(first+9, 12, 31)}, true
	}
	if m := timexCenturyRe.FindStringSubmatch(value); m != nil {
		first, _ := strconv.Atoi(m[1] + "00")
		return m[1] + "00", model.Timespan{Begin: model.NewDate(first, 1, 1), End: model.NewDate(first+99, 12, 31)}, true
	}
	return "", model.Timespan{}, false
}

func referenceYear(reference string) (int, bool) {
	reference = strings.TrimSpace(reference)
	negative := strings.HasPrefix(reference, "-")
	parts := strings.SplitN(strings.TrimPrefix(reference, "-"), "-", 2)
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	if negative {
		y = -y
	}
	return y, true
}

// SkipTimexText reports whether a tagged mention is a signal phrase or a
// generic year word rather than a date
func SkipTimexText(text string) bool {
	return signalWordsRe.MatchString(text) || genericYearPhraseRe.MatchString(text)
}

// FromTags converts raw service tags for sentence into date annotations.
// Service spans are character offsets and are converted to byte offsets.
func FromTags(sentence string, tags []model.TimexTag, reference string) []model.DateAnnotation {
	offsets := runeOffsets(sentence)

	var dates []model.DateAnnotation
	for _, tag := range tags {
		if SkipTimexText(tag.Text) {
			continue
		}
		span, ok := byteSpan(tag.Span, offsets)
		if !ok {
			continue
		}

		switch tag.Type {
		case TagDate:
			label, ts, ok := NormalizeTimex(tag.Value.Point, reference)
			if !ok {
				continue
			}
			if _, ok := model.NewTimespan(ts.Begin, ts.End); !ok {
				continue
			}
			dates = append(dates, model.DateAnnotation{
				Text:            tag.Text,
				Span:            span,
				Timespan:        ts,
				Method:          model.MethodSUTime,
				Disambiguations: []model.Disambiguation{{Mention: label, ID: ts.Begin.KB()}},
			})
		case TagDuration:
			if !tag.Value.IsRange() {
				continue
			}
			bLabel, begin, ok1 := NormalizeTimex(tag.Value.Begin, reference)
			eLabel, end, ok2 := NormalizeTimex(tag.Value.End, reference)
			if !ok1 || !ok2 {
				continue
			}
			ts, ok := model.NewTimespan(begin.Begin, end.End)
			if !ok {
				continue
			}
			dates = append(dates, model.DateAnnotation{
				Text:     tag.Text,
				Span:     span,
				Timespan: ts,
				Method:   model.MethodSUTime,
				Disambiguations: []model.Disambiguation{
					{Mention: bLabel, ID: begin.Begin.KB()},
					{Mention: eLabel, ID: end.Begin.KB()},
				},
			})
		}
	}
	return dates
}

// runeOffsets maps rune index to byte offset, with one trailing entry for the end
func runeOffsets(s string) []int {
	offsets := make([]int, 0, utf8.RuneCountInString(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}

func byteSpan(span model.TextSpan, offsets []int) (model.TextSpan, bool) {
	if span.Start < 0 || span.End < span.Start || span.End >= len(offsets) {
		return model.TextSpan{}, false
	}
	return model.TextSpan{Start: offsets[span.Start], End: offsets[span.End]}, true
}
