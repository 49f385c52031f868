package prune

import "github.com/ppiankov/tempora/internal/model"

// Satisfies reports whether any evidence span relates to any constraint
// span as signal requires. Unknown signals are treated as OVERLAP.
func Satisfies(signal model.Signal, evidence, constraints []model.Timespan) bool {
	var holds func(e, c model.Timespan) bool
	switch signal {
	case model.SignalBefore:
		holds = Before
	case model.SignalAfter:
		holds = After
	case model.SignalStart:
		holds = Start
	case model.SignalFinish:
		holds = Finish
	default:
		holds = Overlap
	}

	for _, e := range evidence {
		for _, c := range constraints {
			if holds(e, c) {
				return true
			}
		}
	}
	return false
}

// bareYear reports whether a span runs from Jan 1 to Dec 31
func bareYear(s model.Timespan) bool {
	return s.Begin.IsYearStart() && s.End.IsYearEnd()
}

// Overlap holds when the spans are identical, nested or intersect. When
// both spans are bare years their ends are compared at year start, so
// consecutive years only touch.
func Overlap(e, c model.Timespan) bool {
	if e == c {
		return true
	}

	eBegin, eEnd := e.Begin, e.End
	cBegin, cEnd := c.Begin, c.End
	if bareYear(e) && bareYear(c) {
		eEnd = eEnd.YearStart()
		cEnd = cEnd.YearStart()
	}

	switch {
	case eBegin <= cBegin && eEnd >= cEnd: // evidence contains constraint
		return true
	case eBegin >= cBegin && eEnd <= cEnd: // constraint contains evidence
		return true
	case eBegin <= cBegin && eEnd >= cBegin && eEnd <= cEnd:
		return true
	case eEnd >= cEnd && eBegin >= cBegin && eBegin <= cEnd:
		return true
	}
	return false
}

// After holds when the evidence begins at or after the constraint ends.
// A bare-year constraint ends at its year start when the evidence also
// begins on Jan 1.
func After(e, c model.Timespan) bool {
	cEnd := c.End
	if bareYear(c) && e.Begin.IsYearStart() {
		cEnd = cEnd.YearStart()
	}
	return e.Begin >= cEnd
}

// Before holds when the evidence ends at or before the constraint begins.
// A bare-year evidence ends at its year start when the constraint also
// begins on Jan 1.
func Before(e, c model.Timespan) bool {
	eEnd := e.End
	if bareYear(e) && c.Begin.IsYearStart() {
		eEnd = eEnd.YearStart()
	}
	return eEnd <= c.Begin
}

// Start holds when both spans begin on the same day
func Start(e, c model.Timespan) bool {
	return e.Begin == c.Begin
}

// Finish holds when both spans end on the same day
func Finish(e, c model.Timespan) bool {
	return e.End == c.End
}
