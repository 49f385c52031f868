// Package score ranks candidate answers from faithful evidence.
package score

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/tempora/internal/model"
)

// Weights of the score components
const (
	SupportWeight  = 1.0  // Per faithful evidence mentioning the candidate
	SourceWeight   = 0.5  // Per distinct evidence source
	RelationWeight = 0.25 // Per evidence whose text shares a word with the relation
	OrdinalBonus   = 10.0 // Candidate selected by an ordinal constraint
)

// Candidate is one possible answer with the evidence that supports it
type Candidate struct {
	Item         model.KBItem
	Support      int // Faithful evidences mentioning the item
	Sources      map[model.Source]struct{}
	RelationHits int             // Supporting evidences sharing a relation word
	EvidenceSum  float64         // Sum of retrieval scores of supporting evidences
	Begin        model.Timestamp // Earliest begin over supporting evidences, PosInf when unknown
	Ordinal      bool            // Picked by an ordinal constraint
}

// Score combines the components into one value
func (c Candidate) Score() float64 {
	s := float64(c.Support)*SupportWeight +
		float64(len(c.Sources))*SourceWeight +
		float64(c.RelationHits)*RelationWeight +
		c.EvidenceSum
	if c.Ordinal {
		s += OrdinalBonus
	}
	return s
}

// Explain renders the score formula with the candidate's values
func (c Candidate) Explain() string {
	return fmt.Sprintf("support %d*%.2f + sources %d*%.2f + relation %d*%.2f + evidence %.2f + ordinal %t = %.2f",
		c.Support, SupportWeight, len(c.Sources), SourceWeight, c.RelationHits, RelationWeight, c.EvidenceSum, c.Ordinal, c.Score())
}

// Scorer ranks answers for a question
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Rank builds candidates from the faithful evidences of in and returns the
// top answers, best first. Equal scores prefer day-precise dates over year
// items, then the smaller id. Question entities are never answers. A date
// question only takes timestamp answers; any other question only items.
func (s *Scorer) Rank(in *model.Instance, topk int) []model.RankedAnswer {
	candidates := s.Candidates(in)
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidates[i].Score(), candidates[j].Score()
		if si != sj {
			return si > sj
		}
		if pi, pj := dayPrecise(candidates[i].Item), dayPrecise(candidates[j].Item); pi != pj {
			return pi
		}
		return candidates[i].Item.ID < candidates[j].Item.ID
	})

	if topk > 0 && len(candidates) > topk {
		candidates = candidates[:topk]
	}
	ranked := make([]model.RankedAnswer, len(candidates))
	for i, c := range candidates {
		ranked[i] = model.RankedAnswer{Answer: c.Item, Rank: i + 1, Score: c.Score()}
	}
	return ranked
}

// dayPrecise reports whether item is a timestamp more precise than a year
func dayPrecise(item model.KBItem) bool {
	if !model.IsTimestampID(item.ID) {
		return false
	}
	ts, ok := model.ParseTimestamp(item.ID)
	return ok && !ts.IsYearStart()
}

// Candidates collects scored candidates in first-seen order
func (s *Scorer) Candidates(in *model.Instance) []Candidate {
	var form model.StructuredTemporalForm
	if in.Form != nil {
		form = *in.Form
	}
	wantDate := form.AsksForDate()

	exclude := make(map[string]struct{}, len(in.Entities))
	for _, e := range in.Entities {
		exclude[e.ID] = struct{}{}
	}
	relationWords := contentWords(form.Relation)

	index := map[string]int{}
	var candidates []Candidate
	for _, ev := range in.Faithful {
		relationHit := sharesWord(ev.Text, relationWords)
		begin := earliestBegin(ev)

		seen := map[string]struct{}{}
		for _, item := range ev.Entities {
			if _, skip := exclude[item.ID]; skip {
				continue
			}
			if _, dup := seen[item.ID]; dup {
				continue
			}
			if model.IsTimestampID(item.ID) != wantDate {
				continue
			}
			seen[item.ID] = struct{}{}

			i, ok := index[item.ID]
			if !ok {
				i = len(candidates)
				index[item.ID] = i
				candidates = append(candidates, Candidate{
					Item:    item,
					Sources: map[model.Source]struct{}{},
					Begin:   model.PosInf,
				})
			}
			c := &candidates[i]
			c.Support++
			c.Sources[ev.Source] = struct{}{}
			c.EvidenceSum += ev.Score
			if relationHit {
				c.RelationHits++
			}
			if begin < c.Begin {
				c.Begin = begin
			}
		}
	}

	for _, ord := range form.Values.Ordinals() {
		if i, ok := pickOrdinal(candidates, ord); ok {
			candidates[i].Ordinal = true
		}
	}
	return candidates
}

// pickOrdinal returns the index of the candidate at the ordinal position of
// the begin-time order. Candidates without a begin time do not take part.
func pickOrdinal(candidates []Candidate, ord model.Ordinal) (int, bool) {
	var dated []int
	for i, c := range candidates {
		if c.Begin != model.PosInf {
			dated = append(dated, i)
		}
	}
	if len(dated) == 0 {
		return 0, false
	}
	sort.SliceStable(dated, func(a, b int) bool {
		return candidates[dated[a]].Begin < candidates[dated[b]].Begin
	})

	switch {
	case ord == model.OrdinalLatest:
		return dated[len(dated)-1], true
	case ord == model.OrdinalOldest:
		return dated[0], true
	case int(ord) >= 1 && int(ord) <= len(dated):
		return dated[int(ord)-1], true
	default:
		return 0, false
	}
}

func earliestBegin(ev model.Evidence) model.Timestamp {
	begin := model.PosInf
	if !ev.HasTempInfo() {
		return begin
	}
	for _, span := range ev.TempInfo.Timespans {
		if span.Begin != model.NegInf && span.Begin < begin {
			begin = span.Begin
		}
	}
	return begin
}

func contentWords(s string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}

func sharesWord(text string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	text = strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// AnswerPresence reports which gold answers occur in the evidences: by
// item id among the evidence entities, or for timestamp answers among the
// date disambiguations
func AnswerPresence(evidences []model.Evidence, answers []model.KBItem) (bool, []model.KBItem) {
	ids := map[string]struct{}{}
	for _, ev := range evidences {
		for _, item := range ev.Entities {
			ids[item.ID] = struct{}{}
		}
		for _, d := range ev.Disambiguations {
			if model.IsTimestampID(d.ID) {
				ids[d.ID] = struct{}{}
			}
		}
	}

	var found []model.KBItem
	for _, a := range answers {
		if _, ok := ids[a.ID]; ok {
			found = append(found, a)
		}
	}
	return len(found) > 0, found
}
