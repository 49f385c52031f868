// Package extract turns KB facts into evidences and cleans evidence sets.
package extract

import (
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/tempora/internal/kb"
	"github.com/ppiankov/tempora/internal/model"
)

// Qualifier predicates that bound a fact in time
const (
	StartTime = "P580"
	EndTime   = "P582"
)

// FactSeparator joins item labels into the verbalised fact
const FactSeparator = ", "

// FactEvidence converts one KB fact into an evidence. Items of the fact
// that were matched in the question are recorded as RetrievedFor.
func FactEvidence(fact kb.Fact, questionItems map[string]struct{}) model.Evidence {
	items := make([]model.KBItem, len(fact))
	copy(items, fact)

	var (
		begin, end   model.Timestamp
		hasBegin     bool
		hasEnd       bool
		dates        []model.Disambiguation
		retrievedFor []model.KBItem
	)

	for i := range items {
		item := &items[i]
		if _, ok := questionItems[item.ID]; ok {
			retrievedFor = append(retrievedFor, *item)
		}
		if !model.IsTimestampID(item.ID) {
			continue
		}
		ts, ok := model.ParseTimestamp(item.ID)
		if !ok {
			continue
		}
		item.ID = strings.ReplaceAll(item.ID, `"`, "")
		item.Label = TimestampLabel(ts)
		dates = appendUnique(dates, model.Disambiguation{Mention: item.Label, ID: item.ID})

		prev := ""
		if i > 0 {
			prev = items[i-1].ID
		}
		switch prev {
		case StartTime:
			begin, hasBegin = ts, true
		case EndTime:
			end, hasEnd = widenYear(ts), true
		default:
			begin, hasBegin = ts, true
			end, hasEnd = widenYear(ts), true
		}
	}

	ev := model.Evidence{
		Text:         Verbalise(items),
		Source:       model.SourceKB,
		Entities:     factEntities(items),
		RetrievedFor: retrievedFor,
	}
	for _, item := range items {
		if kb.IsEntity(item.ID) {
			ev.Disambiguations = append(ev.Disambiguations, model.Disambiguation{Mention: item.Label, ID: item.ID})
		}
	}

	if (hasBegin || hasEnd) && len(dates) > 0 {
		span := model.Timespan{Begin: model.NegInf, End: model.PosInf}
		if hasBegin {
			span.Begin = begin
		}
		if hasEnd {
			span.End = end
		}
		ev.TempInfo = &model.TempInfo{Timespans: []model.Timespan{span}, Disambiguations: dates}
	}
	return ev
}

// FactEvidences converts every fact of a search space
func FactEvidences(facts []kb.Fact, questionItems map[string]struct{}) []model.Evidence {
	out := make([]model.Evidence, 0, len(facts))
	for _, f := range facts {
		out = append(out, FactEvidence(f, questionItems))
	}
	return out
}

// Verbalise joins item labels into evidence text
func Verbalise(items []model.KBItem) string {
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.Label
	}
	return strings.Join(labels, FactSeparator)
}

// TimestampLabel renders a timestamp the way dates read in facts:
// the bare year for January 1st, otherwise "4 August 1961"
func TimestampLabel(ts model.Timestamp) string {
	year := strconv.Itoa(ts.Year())
	if ts.IsYearStart() {
		return year
	}
	md, _ := ts.MonthDay()
	month := time.Month(md / 100)
	if month < time.January || month > time.December {
		return ts.Date()
	}
	return strconv.Itoa(md%100) + " " + month.String() + " " + year
}

// YearItem is the year-granularity item added next to each timestamp answer
func YearItem(ts model.Timestamp) model.KBItem {
	return model.KBItem{ID: model.NewDate(ts.Year(), 1, 1).KB(), Label: strconv.Itoa(ts.Year())}
}

// widenYear turns a January 1st (year precision) value into December 31st
func widenYear(ts model.Timestamp) model.Timestamp {
	if ts.IsYearStart() {
		return ts.YearEnd()
	}
	return ts
}

// factEntities returns the answer candidates of a fact: every item except
// predicates, plus a year item after each timestamp
func factEntities(items []model.KBItem) []model.KBItem {
	var out []model.KBItem
	for _, item := range items {
		if kb.IsPredicate(item.ID) {
			continue
		}
		out = append(out, item)
		if ts, ok := model.ParseTimestamp(item.ID); ok && model.IsTimestampID(item.ID) {
			out = append(out, YearItem(ts))
		}
	}
	return out
}

// Dedupe merges evidences with the same text and source. Entities,
// disambiguations and retrieved-for items are unioned in first-seen order;
// tempinfo is taken from the first occurrence.
func Dedupe(evidences []model.Evidence) []model.Evidence {
	index := make(map[string]int, len(evidences))
	var out []model.Evidence

	for _, ev := range evidences {
		key := ev.Key()
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, model.Evidence{
				Text:     ev.Text,
				Source:   ev.Source,
				TempInfo: ev.TempInfo,
				Score:    ev.Score,
			})
			i = len(out) - 1
		}
		merged := &out[i]
		for _, item := range ev.Entities {
			merged.Entities = appendUnique(merged.Entities, item)
		}
		for _, d := range ev.Disambiguations {
			merged.Disambiguations = appendUnique(merged.Disambiguations, d)
		}
		for _, item := range ev.RetrievedFor {
			merged.RetrievedFor = appendUnique(merged.RetrievedFor, item)
		}
	}
	return out
}

// Filter keeps evidences from allowed sources that reference more than one
// entity and, when maxEntities > 0, no more than maxEntities
func Filter(evidences []model.Evidence, sources model.SourceSet, maxEntities int) []model.Evidence {
	var out []model.Evidence
	for _, ev := range evidences {
		if len(ev.Entities) == 1 {
			continue
		}
		if maxEntities > 0 && len(ev.Entities) > maxEntities {
			continue
		}
		if sources.Has(ev.Source) {
			out = append(out, ev)
		}
	}
	return out
}

func appendUnique[T comparable](list []T, v T) []T {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
