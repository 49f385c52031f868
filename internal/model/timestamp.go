package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Timestamp is a point in time encoded as the integer YYYYMMDD.
// BC dates carry a leading minus sign. Coarser granularities are expanded
// before encoding, so any two timestamps compare meaningfully.
type Timestamp int64

const (
	// NegInf marks an open begin of a timespan
	NegInf Timestamp = math.MinInt64
	// PosInf marks an open end of a timespan
	PosInf Timestamp = math.MaxInt64
)

// wikidataSuffix is appended to dates in KB timestamp notation
const wikidataSuffix = "T00:00:00Z"

// NewDate encodes a calendar date. Negative years produce BC timestamps.
func NewDate(year, month, day int) Timestamp {
	if year < 0 {
		return -Timestamp(-year*10000 + month*100 + day)
	}
	return Timestamp(year*10000 + month*100 + day)
}

// ParseTimestamp parses "YYYY-MM-DD", "-YYYY-MM-DD", KB timestamps
// ("YYYY-MM-DDT00:00:00Z", optionally quoted) and bare integer encodings.
func ParseTimestamp(raw string) (Timestamp, bool) {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	s = strings.TrimPrefix(s, "+")
	if idx := strings.Index(s, "T"); idx > 0 {
		s = s[:idx]
	}
	if s == "" {
		return 0, false
	}

	negative := strings.HasPrefix(s, "-")
	digits := strings.ReplaceAll(s, "-", "")
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return Timestamp(v), true
}

// IsInf reports whether t is one of the open-interval sentinels
func (t Timestamp) IsInf() bool {
	return t == NegInf || t == PosInf
}

// MonthDay returns the MMDD part of the encoding
func (t Timestamp) MonthDay() (int, bool) {
	if t.IsInf() {
		return 0, false
	}
	return int(abs(t) % 10000), true
}

// Year returns the (signed) year of t
func (t Timestamp) Year() int {
	y := int(abs(t) / 10000)
	if t < 0 {
		return -y
	}
	return y
}

// IsYearStart reports whether t falls on January 1st
func (t Timestamp) IsYearStart() bool {
	md, ok := t.MonthDay()
	return ok && md == 101
}

// IsYearEnd reports whether t falls on December 31st
func (t Timestamp) IsYearEnd() bool {
	md, ok := t.MonthDay()
	return ok && md == 1231
}

// YearStart moves t to January 1st of its year
func (t Timestamp) YearStart() Timestamp {
	if t.IsInf() {
		return t
	}
	return NewDate(t.Year(), 1, 1)
}

// YearEnd moves t to December 31st of its year
func (t Timestamp) YearEnd() Timestamp {
	if t.IsInf() {
		return t
	}
	return NewDate(t.Year(), 12, 31)
}

// Date renders t as YYYY-MM-DD (with a leading minus for BC).
// Open sentinels render as an empty string.
func (t Timestamp) Date() string {
	if t.IsInf() {
		return ""
	}
	a := abs(t)
	sign := ""
	if t < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%04d-%02d-%02d", sign, a/10000, (a/100)%100, a%100)
}

// KB renders t in KB timestamp notation
func (t Timestamp) KB() string {
	if t.IsInf() {
		return ""
	}
	return t.Date() + wikidataSuffix
}

func (t Timestamp) String() string {
	switch t {
	case NegInf:
		return "-inf"
	case PosInf:
		return "+inf"
	}
	return t.Date()
}

func abs(t Timestamp) int64 {
	if t < 0 {
		return -int64(t)
	}
	return int64(t)
}

// Timespan is an inclusive [Begin, End] interval. Either side may be open.
type Timespan struct {
	Begin Timestamp
	End   Timestamp
}

// NewTimespan builds a timespan, rejecting begin > end
func NewTimespan(begin, end Timestamp) (Timespan, bool) {
	if begin > end {
		return Timespan{}, false
	}
	return Timespan{Begin: begin, End: end}, true
}

// ParseTimespan parses both sides of a span; an empty side is open.
// Unparsable sides are treated as open, matching how malformed dates
// degrade to "unknown".
func ParseTimespan(begin, end string) (Timespan, bool) {
	b, e := NegInf, PosInf
	if strings.TrimSpace(begin) != "" {
		if v, ok := ParseTimestamp(begin); ok {
			b = v
		}
	}
	if strings.TrimSpace(end) != "" {
		if v, ok := ParseTimestamp(end); ok {
			e = v
		}
	}
	return NewTimespan(b, e)
}

// PointSpan returns [t, t]
func PointSpan(t Timestamp) Timespan {
	return Timespan{Begin: t, End: t}
}

// IsBareYear reports whether the span covers exactly Jan 1st to Dec 31st
// boundaries on both sides.
func (s Timespan) IsBareYear() bool {
	return s.Begin.IsYearStart() && s.End.IsYearEnd()
}

func (s Timespan) String() string {
	return fmt.Sprintf("[%s, %s]", s.Begin, s.End)
}

func (Timespan) temporalValue() {}

// MarshalJSON encodes the span as a [begin, end] pair of dates, null for open sides
func (s Timespan) MarshalJSON() ([]byte, error) {
	pair := [2]*string{}
	if !s.Begin.IsInf() {
		v := s.Begin.Date()
		pair[0] = &v
	}
	if !s.End.IsInf() {
		v := s.End.Date()
		pair[1] = &v
	}
	return json.Marshal(pair)
}

// UnmarshalJSON accepts [begin, end] pairs of date strings, integers or null
func (s *Timespan) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("timespan: expected 2 elements, got %d", len(raw))
	}
	begin, err := rawSide(raw[0])
	if err != nil {
		return err
	}
	end, err := rawSide(raw[1])
	if err != nil {
		return err
	}
	span, ok := ParseTimespan(begin, end)
	if !ok {
		return fmt.Errorf("timespan: begin %q after end %q", begin, end)
	}
	*s = span
	return nil
}

func rawSide(raw json.RawMessage) (string, error) {
	text := strings.TrimSpace(string(raw))
	if text == "null" || text == "" {
		return "", nil
	}
	if strings.HasPrefix(text, `"`) {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", err
		}
		return v, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
