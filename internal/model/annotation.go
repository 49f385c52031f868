package model

import (
	"encoding/json"
	"strings"
)

// TextSpan is a [Start, End) character range inside a sentence
type TextSpan struct {
	Start int
	End   int
}

// Len returns the number of characters covered
func (s TextSpan) Len() int {
	return s.End - s.Start
}

// Within reports whether s lies fully inside other
func (s TextSpan) Within(other TextSpan) bool {
	return s.Start >= other.Start && s.End <= other.End
}

// MarshalJSON encodes the span as [start, end]
func (s TextSpan) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Start, s.End})
}

// UnmarshalJSON decodes a [start, end] pair
func (s *TextSpan) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	s.Start, s.End = pair[0], pair[1]
	return nil
}

// Annotation methods
const (
	MethodRegex       = "regex"
	MethodSUTime      = "sutime"
	MethodSUTimeRegex = "sutime_regex"
)

// DateAnnotation is a date mention normalized to a timespan
type DateAnnotation struct {
	Text     string   `json:"text"`
	Span     TextSpan `json:"span"`
	Timespan Timespan `json:"timespan"`
	Method   string   `json:"method"` // regex or sutime

	// Normalized date text paired with its KB timestamp, one per date in the mention
	Disambiguations []Disambiguation `json:"disambiguation"`
}

// OrdinalAnnotation is an ordinal mention normalized to a rank
type OrdinalAnnotation struct {
	Text    string   `json:"text"`
	Span    TextSpan `json:"span"`
	Ordinal Ordinal  `json:"ordinal"`
}

// Annotations groups the temporal annotations of one sentence
type Annotations struct {
	Dates    []DateAnnotation    `json:"dates"`
	Ordinals []OrdinalAnnotation `json:"ordinals"`
}

// Values converts the annotations to temporal values, dates first
func (a Annotations) Values() TemporalValues {
	values := make(TemporalValues, 0, len(a.Dates)+len(a.Ordinals))
	for _, d := range a.Dates {
		values = append(values, d.Timespan)
	}
	for _, o := range a.Ordinals {
		values = append(values, o.Ordinal)
	}
	return values
}

// TempInfo builds evidence tempinfo from the date annotations; nil when none
func (a Annotations) TempInfo() *TempInfo {
	return DatesTempInfo(a.Dates)
}

// DatesTempInfo builds tempinfo from date annotations. Both timespans and
// disambiguations must be present, otherwise nil is returned.
func DatesTempInfo(dates []DateAnnotation) *TempInfo {
	info := &TempInfo{}
	for _, d := range dates {
		info.Timespans = append(info.Timespans, d.Timespan)
		info.Disambiguations = append(info.Disambiguations, d.Disambiguations...)
	}
	if len(info.Timespans) == 0 || len(info.Disambiguations) == 0 {
		return nil
	}
	return info
}

// TimexTag is one raw annotation returned by the date-tagging service
type TimexTag struct {
	Text  string     `json:"text"`
	Type  string     `json:"type"` // DATE, DURATION, TIME, SET
	Value TimexValue `json:"value"`
	Span  TextSpan   `json:"span"`
}

// TimexValue is either a single TIMEX string or a {begin, end} pair for durations
type TimexValue struct {
	Point string
	Begin string
	End   string
}

// IsRange reports whether the value carries begin/end parts
func (v TimexValue) IsRange() bool {
	return v.Begin != "" || v.End != ""
}

// MarshalJSON encodes a point as a string and a range as an object
func (v TimexValue) MarshalJSON() ([]byte, error) {
	if v.IsRange() {
		return json.Marshal(map[string]string{"begin": v.Begin, "end": v.End})
	}
	return json.Marshal(v.Point)
}

// UnmarshalJSON accepts both encodings
func (v *TimexValue) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "{") {
		var r struct {
			Begin string `json:"begin"`
			End   string `json:"end"`
		}
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		*v = TimexValue{Begin: r.Begin, End: r.End}
		return nil
	}
	if text == "null" {
		*v = TimexValue{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = TimexValue{Point: s}
	return nil
}

// TagRequest is one (text, reference time) pair for batched date tagging
type TagRequest struct {
	Text          string `json:"text"`
	ReferenceTime string `json:"reference_time"`
}
