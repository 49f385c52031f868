// Package temporal normalizes date mentions into comparable timespans.
package temporal

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/tempora/internal/model"
)

// Format is a hint telling Normalize how a raw date text is laid out
type Format string

const (
	FormatYear Format = "year" // 1999
	FormatYMD  Format = "ymd"  // 1999-05-24, 1999/5/24, 1999.05.24
	FormatMDY  Format = "mdy"  // 05/24/1999
	FormatDMY  Format = "dmy"  // 24.05.1999
	FormatYM   Format = "ym"   // 1999-05
	FormatMY   Format = "my"   // 05/1999 or May 1999

	FormatTextDMY Format = "text_dmy" // 24 May 1999
	FormatTextMDY Format = "text_mdy" // May 24, 1999
	FormatTextYMD Format = "text_ymd" // 1999, May 24

	FormatRange1 Format = "timespan1" // 2003, March 20–May 22
	FormatRange2 Format = "timespan2" // 2003–2005
	FormatRange3 Format = "timespan3" // 2003, March 20–22
	FormatRange4 Format = "timespan4" // 24 May 2001 – 2008
	FormatRange5 Format = "timespan5" // 29 May 2000 – 13 July 2000
	FormatRange6 Format = "timespan6" // May 29, 2000 – July 13, 2000
	FormatRange7 Format = "timespan7" // 1948 to 2005
	FormatRange8 Format = "timespan8" // 1948 until 2005

	FormatTimestamp Format = "timestamp" // 1999-05-24T00:00:00Z
)

const enDash = "–"

var (
	numYearRe = regexp.MustCompile(`^[0-9]{4}$`)
	numYMDRe  = regexp.MustCompile(`^\d{4}[-/.]\d{1,2}[-/.]\d{1,2}$`)
	numMDYRe  = regexp.MustCompile(`^\d{1,2}[-/.]\d{1,2}[-/.]\d{4}$`)
	numYMRe   = regexp.MustCompile(`^\d{4}[-/.]\d{1,2}$`)
	numMYRe   = regexp.MustCompile(`^\d{1,2}[-/.]\d{4}$`)
	numSepRe  = regexp.MustCompile(`[-/.]`)
)

var monthNumbers = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may":  5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9, "sept": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

// MonthNumber maps a month name or abbreviation to 1..12
func MonthNumber(name string) (int, bool) {
	m, ok := monthNumbers[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

// IsMonth reports whether the word names a month
func IsMonth(word string) bool {
	_, ok := MonthNumber(word)
	return ok
}

// YearSpan covers a whole year
func YearSpan(year int) model.Timespan {
	return model.Timespan{Begin: model.NewDate(year, 1, 1), End: model.NewDate(year, 12, 31)}
}

// MonthSpan covers a month. The end day is always 31, regardless of the month.
func MonthSpan(year, month int) model.Timespan {
	return model.Timespan{Begin: model.NewDate(year, month, 1), End: model.NewDate(year, month, 31)}
}

// DaySpan covers a single day
func DaySpan(year, month, day int) model.Timespan {
	return model.PointSpan(model.NewDate(year, month, day))
}

// NormalizeYMD turns numeric year, month and day parts into a span.
// Month 0 means year granularity and day 0 month granularity.
func NormalizeYMD(year, month, day string) (model.Timespan, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return model.Timespan{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return model.Timespan{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return model.Timespan{}, false
	}

	switch {
	case m == 0:
		return YearSpan(y), true
	case m >= 1 && m <= 12 && d == 0:
		return MonthSpan(y, m), true
	case m >= 1 && m <= 12 && d >= 1 && d <= 31:
		return DaySpan(y, m, d), true
	}
	return model.Timespan{}, false
}

// Normalize parses a date text laid out as format into a timespan.
// Malformed input yields false, never an error.
func Normalize(text string, format Format) (model.Timespan, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Timespan{}, false
	}

	switch format {
	case FormatYear:
		if !numYearRe.MatchString(text) {
			return model.Timespan{}, false
		}
		y, _ := strconv.Atoi(text)
		return YearSpan(y), true
	case FormatYMD:
		if !numYMDRe.MatchString(text) {
			return model.Timespan{}, false
		}
		p := numSepRe.Split(text, -1)
		return NormalizeYMD(p[0], p[1], p[2])
	case FormatMDY:
		if !numMDYRe.MatchString(text) {
			return model.Timespan{}, false
		}
		p := numSepRe.Split(text, -1)
		return NormalizeYMD(p[2], p[0], p[1])
	case FormatDMY:
		if !numMDYRe.MatchString(text) {
			return model.Timespan{}, false
		}
		p := numSepRe.Split(text, -1)
		return NormalizeYMD(p[2], p[1], p[0])
	case FormatYM:
		if !numYMRe.MatchString(text) {
			return model.Timespan{}, false
		}
		p := numSepRe.Split(text, -1)
		return NormalizeYMD(p[0], p[1], "0")
	case FormatMY:
		if numMYRe.MatchString(text) {
			p := numSepRe.Split(text, -1)
			return NormalizeYMD(p[1], p[0], "0")
		}
		return monthYear(text)
	case FormatTextDMY:
		return textDate(text, 0, 1, 2)
	case FormatTextMDY:
		return textDate(text, 1, 0, 2)
	case FormatTextYMD:
		return textDate(text, 2, 1, 0)
	case FormatRange1:
		return range1(text)
	case FormatRange2:
		return range2(text)
	case FormatRange3:
		return range3(text)
	case FormatRange4:
		return range4(text)
	case FormatRange5:
		return range5(text)
	case FormatRange6:
		return range6(text)
	case FormatRange7:
		return yearsJoinedBy(text, "to")
	case FormatRange8:
		return yearsJoinedBy(text, "until")
	case FormatTimestamp:
		ts, ok := model.ParseTimestamp(text)
		if !ok {
			return model.Timespan{}, false
		}
		return model.PointSpan(ts), true
	}
	return model.Timespan{}, false
}

// numericFallback lists the formats tried by NormalizeAny for numeric tokens.
// mdy is tried before dmy.
var numericFallback = []Format{FormatYear, FormatYMD, FormatMDY, FormatDMY, FormatYM, FormatMY, FormatTimestamp}

// NormalizeAny normalizes a whole date text without a format hint.
// It first tries to annotate the text as a sentence and accepts a single
// annotation spanning the complete text, then falls back to numeric formats.
func NormalizeAny(text string) (model.Timespan, Format, bool) {
	text = strings.TrimSpace(text)
	for _, p := range textPatterns {
		candidate := text
		if p.padded {
			candidate = " " + text + " "
		}
		if loc := p.re.FindStringIndex(candidate); loc != nil && loc[0] == 0 && loc[1] == len(candidate) {
			if span, ok := Normalize(text, p.format); ok {
				return span, p.format, true
			}
		}
	}
	for _, f := range numericFallback {
		if span, ok := Normalize(text, f); ok {
			return span, f, true
		}
	}
	return model.Timespan{}, "", false
}

func atoiDay(day string) (int, bool) {
	d, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(day, ",")))
	if err != nil || d < 1 || d > 31 {
		return 0, false
	}
	return d, true
}

func atoiYear(year string) (int, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(year, ",")))
	if err != nil {
		return 0, false
	}
	return y, true
}

// textDate parses three whitespace separated fields; the indexes tell
// which field holds the day, the month name and the year.
func textDate(text string, dayIdx, monthIdx, yearIdx int) (model.Timespan, bool) {
	fields := strings.Fields(strings.ReplaceAll(text, ",", " "))
	if len(fields) != 3 {
		return model.Timespan{}, false
	}
	d, ok := atoiDay(fields[dayIdx])
	if !ok {
		return model.Timespan{}, false
	}
	m, ok := MonthNumber(fields[monthIdx])
	if !ok {
		return model.Timespan{}, false
	}
	y, ok := atoiYear(fields[yearIdx])
	if !ok {
		return model.Timespan{}, false
	}
	return DaySpan(y, m, d), true
}

func monthYear(text string) (model.Timespan, bool) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return model.Timespan{}, false
	}
	m, ok := MonthNumber(fields[0])
	if !ok {
		return model.Timespan{}, false
	}
	y, ok := atoiYear(fields[1])
	if !ok {
		return model.Timespan{}, false
	}
	return MonthSpan(y, m), true
}

func splitDash(text string) (string, string, bool) {
	parts := strings.Split(text, enDash)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func span(begin, end model.Timestamp) (model.Timespan, bool) {
	return model.NewTimespan(begin, end)
}

// range1: "2003, March 20–May 22"
func range1(text string) (model.Timespan, bool) {
	left, right, ok := splitDash(strings.ReplaceAll(text, ", ", " "))
	if !ok {
		return model.Timespan{}, false
	}
	lf, rf := strings.Fields(left), strings.Fields(right)
	if len(lf) != 3 || len(rf) != 2 {
		return model.Timespan{}, false
	}
	y, ok := atoiYear(lf[0])
	if !ok {
		return model.Timespan{}, false
	}
	m1, ok1 := MonthNumber(lf[1])
	d1, ok2 := atoiDay(lf[2])
	m2, ok3 := MonthNumber(rf[0])
	d2, ok4 := atoiDay(rf[1])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return model.Timespan{}, false
	}
	return span(model.NewDate(y, m1, d1), model.NewDate(y, m2, d2))
}

// range2: "2003–2005"
func range2(text string) (model.Timespan, bool) {
	left, right, ok := splitDash(text)
	if !ok {
		return model.Timespan{}, false
	}
	y1, ok1 := atoiYear(left)
	y2, ok2 := atoiYear(right)
	if !ok1 || !ok2 {
		return model.Timespan{}, false
	}
	return span(model.NewDate(y1, 1, 1), model.NewDate(y2, 12, 31))
}

// range3: "2003, March 20–22"
func range3(text string) (model.Timespan, bool) {
	left, right, ok := splitDash(strings.ReplaceAll(text, ", ", " "))
	if !ok {
		return model.Timespan{}, false
	}
	lf := strings.Fields(left)
	if len(lf) != 3 {
		return model.Timespan{}, false
	}
	y, ok := atoiYear(lf[0])
	if !ok {
		return model.Timespan{}, false
	}
	m, ok1 := MonthNumber(lf[1])
	d1, ok2 := atoiDay(lf[2])
	d2, ok3 := atoiDay(right)
	if !ok1 || !ok2 || !ok3 {
		return model.Timespan{}, false
	}
	return span(model.NewDate(y, m, d1), model.NewDate(y, m, d2))
}

// range4: "24 May 2001 – 2008"
func range4(text string) (model.Timespan, bool) {
	left, right, ok := splitDash(text)
	if !ok {
		return model.Timespan{}, false
	}
	begin, ok := textDate(left, 0, 1, 2)
	if !ok {
		return model.Timespan{}, false
	}
	y2, ok := atoiYear(right)
	if !ok {
		return model.Timespan{}, false
	}
	return span(begin.Begin, model.NewDate(y2, 12, 31))
}

// range5: "29 May 2000 – 13 July 2000"
func range5(text string) (model.Timespan, bool) {
	left, right, ok := splitDash(text)
	if !ok {
		return model.Timespan{}, false
	}
	begin, ok1 := textDate(left, 0, 1, 2)
	end, ok2 := textDate(right, 0, 1, 2)
	if !ok1 || !ok2 {
		return model.Timespan{}, false
	}
	return span(begin.Begin, end.End)
}

// range6: "May 29, 2000 – July 13, 2000"
func range6(text string) (model.Timespan, bool) {
	left, right, ok := splitDash(text)
	if !ok {
		return model.Timespan{}, false
	}
	begin, ok1 := textDate(left, 1, 0, 2)
	end, ok2 := textDate(right, 1, 0, 2)
	if !ok1 || !ok2 {
		return model.Timespan{}, false
	}
	return span(begin.Begin, end.End)
}

// yearsJoinedBy handles "1948 to 2005" and "1948 until 2005"; the end year is widened to Dec 31st
func yearsJoinedBy(text, word string) (model.Timespan, bool) {
	fields := strings.Fields(text)
	if len(fields) != 3 || fields[1] != word {
		return model.Timespan{}, false
	}
	y1, ok1 := atoiYear(fields[0])
	y2, ok2 := atoiYear(fields[2])
	if !ok1 || !ok2 {
		return model.Timespan{}, false
	}
	return span(model.NewDate(y1, 1, 1), model.NewDate(y2, 12, 31))
}
