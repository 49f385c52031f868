package temporal

import (
	"fmt"
	"strings"

	"github.com/ppiankov/tempora/internal/model"
)

// TieBreak decides which of two overlapping annotations of equal length survives
type TieBreak int

const (
	// TieLater keeps the annotation added last
	TieLater TieBreak = iota
	// TieEarlier keeps the annotation added first
	TieEarlier
)

// ParseTieBreak parses "later" or "earlier"; empty means later
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "later":
		return TieLater, nil
	case "earlier":
		return TieEarlier, nil
	}
	return TieLater, fmt.Errorf("unknown tie break %q (supported: later, earlier)", s)
}

func (tb TieBreak) String() string {
	if tb == TieEarlier {
		return "earlier"
	}
	return "later"
}

// Overlaps reports whether two spans share a position. Touching spans count.
func Overlaps(a, b model.TextSpan) bool {
	return !(a.End < b.Start || a.Start > b.End)
}

// MergeDates combines two annotation lists, first then second. Annotations
// with identical spans collapse into one; for overlapping spans the longer
// one is kept and equal lengths are settled by tb. The result keeps
// insertion order.
func MergeDates(first, second []model.DateAnnotation, tb TieBreak) []model.DateAnnotation {
	entries := make([]model.DateAnnotation, 0, len(first)+len(second))
	index := make(map[model.TextSpan]int, len(first)+len(second))

	add := func(a model.DateAnnotation) {
		if i, ok := index[a.Span]; ok {
			if tb == TieLater {
				entries[i] = a
			}
			return
		}
		index[a.Span] = len(entries)
		entries = append(entries, a)
	}
	for _, a := range first {
		add(a)
	}
	for _, a := range second {
		add(a)
	}

	removed := make([]bool, len(entries))
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries) && !removed[i]; j++ {
			if removed[j] || !Overlaps(entries[i].Span, entries[j].Span) {
				continue
			}
			li, lj := entries[i].Span.Len(), entries[j].Span.Len()
			switch {
			case lj > li:
				removed[i] = true
			case li > lj:
				removed[j] = true
			case tb == TieLater:
				removed[i] = true
			default:
				removed[j] = true
			}
		}
	}

	merged := make([]model.DateAnnotation, 0, len(entries))
	for i, a := range entries {
		if !removed[i] {
			merged = append(merged, a)
		}
	}
	return merged
}
