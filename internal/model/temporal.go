package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Signal is the temporal relation a question asserts between an event and a reference time
type Signal string

const (
	SignalBefore  Signal = "BEFORE"
	SignalAfter   Signal = "AFTER"
	SignalStart   Signal = "START"
	SignalFinish  Signal = "FINISH"
	SignalOverlap Signal = "OVERLAP" // Also used for "no signal"
)

// ParseSignal maps free-form signal text onto a Signal.
// Unknown or absent values fall back to OVERLAP.
func ParseSignal(raw string) Signal {
	switch s := Signal(strings.ToUpper(strings.TrimSpace(raw))); s {
	case SignalBefore, SignalAfter, SignalStart, SignalFinish, SignalOverlap:
		return s
	default:
		return SignalOverlap
	}
}

// Category tells whether the temporal constraint of a question is lexically present
type Category string

const (
	CategoryImplicit    Category = "implicit"
	CategoryNonImplicit Category = "non-implicit"
)

// ParseCategory normalizes category text; anything but "implicit" is non-implicit
func ParseCategory(raw string) Category {
	if strings.EqualFold(strings.TrimSpace(raw), string(CategoryImplicit)) {
		return CategoryImplicit
	}
	return CategoryNonImplicit
}

// TemporalValue is either an Ordinal rank or a Timespan
type TemporalValue interface {
	temporalValue()
	String() string
}

// Ordinal is a rank constraint ("third", "latest")
type Ordinal int

const (
	OrdinalLatest Ordinal = -1 // "latest", "newest", "last", "most recent"
	OrdinalOldest Ordinal = 0  // "oldest"
)

func (Ordinal) temporalValue() {}

func (o Ordinal) String() string {
	return fmt.Sprintf("%d", int(o))
}

// TemporalValues is a disjunction of temporal constraints
type TemporalValues []TemporalValue

// Timespans returns the timespan variants, skipping ordinals
func (v TemporalValues) Timespans() []Timespan {
	var spans []Timespan
	for _, tv := range v {
		if span, ok := tv.(Timespan); ok {
			spans = append(spans, span)
		}
	}
	return spans
}

// Ordinals returns the ordinal variants
func (v TemporalValues) Ordinals() []Ordinal {
	var ords []Ordinal
	for _, tv := range v {
		if o, ok := tv.(Ordinal); ok {
			ords = append(ords, o)
		}
	}
	return ords
}

// MarshalJSON keeps the mixed encoding: integers for ordinals, pairs for timespans
func (v TemporalValues) MarshalJSON() ([]byte, error) {
	items := make([]any, 0, len(v))
	for _, tv := range v {
		items = append(items, tv)
	}
	return json.Marshal(items)
}

// UnmarshalJSON decodes the mixed encoding. Ill-formed entries are dropped.
func (v *TemporalValues) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	values := make(TemporalValues, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 {
			continue
		}
		if item[0] == '[' {
			var span Timespan
			if err := json.Unmarshal(item, &span); err != nil {
				continue
			}
			values = append(values, span)
			continue
		}
		var n int
		if err := json.Unmarshal(item, &n); err != nil {
			continue
		}
		values = append(values, Ordinal(n))
	}
	*v = values
	return nil
}

// StructuredTemporalForm is the decomposed representation of a temporal question
type StructuredTemporalForm struct {
	Entity     string         `json:"entity"`
	Relation   string         `json:"relation"`
	AnswerType string         `json:"answer_type"`
	Signal     Signal         `json:"temporal_signal"`
	Category   Category       `json:"category"`
	Values     TemporalValues `json:"temporal_value"`
}

// Query joins entity, relation and answer type into a retrieval query
func (f StructuredTemporalForm) Query() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{f.Entity, f.Relation, f.AnswerType} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// AsksForDate reports whether the expected answer is a date or a year
func (f StructuredTemporalForm) AsksForDate() bool {
	at := strings.ToLower(f.AnswerType)
	return strings.Contains(at, "date") || strings.Contains(at, "year")
}

// IsImplicit reports whether the constraint must be resolved through a sub-question
func (f StructuredTemporalForm) IsImplicit() bool {
	return f.Category == CategoryImplicit
}

func (f StructuredTemporalForm) String() string {
	values := make([]string, 0, len(f.Values))
	for _, v := range f.Values {
		values = append(values, v.String())
	}
	return fmt.Sprintf("entity: %s, relation: %s, answer type: %s, temporal signal: %s, category: %s, temporal value: [%s]",
		f.Entity, f.Relation, f.AnswerType, f.Signal, f.Category, strings.Join(values, ", "))
}
