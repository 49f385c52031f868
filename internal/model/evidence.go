package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Evidence is a retrieved fact or text unit considered for answering a question
type Evidence struct {
	Text            string           `json:"evidence_text"`               // Verbalised fact, sentence or table row
	Source          Source           `json:"source"`                      // kb, text, table, info
	Entities        []KBItem         `json:"wikidata_entities,omitempty"` // Referenced KB items
	Disambiguations []Disambiguation `json:"disambiguations,omitempty"`   // Mention to item links
	RetrievedFor    []KBItem         `json:"retrieved_for_entity,omitempty"`
	TempInfo        *TempInfo        `json:"tempinfo,omitempty"` // Temporal information extracted at retrieval time
	Score           float64          `json:"score,omitempty"`
}

// HasTempInfo reports whether any timespan was extracted for the evidence
func (e Evidence) HasTempInfo() bool {
	return e.TempInfo != nil && len(e.TempInfo.Timespans) > 0
}

// Key identifies evidences that carry the same content from the same source
func (e Evidence) Key() string {
	return e.Text + "|||" + string(e.Source)
}

// Source classifies where an evidence came from
type Source string

const (
	SourceKB    Source = "kb"    // KB fact
	SourceText  Source = "text"  // Wikipedia sentence
	SourceTable Source = "table" // Wikipedia table row
	SourceInfo  Source = "info"  // Wikipedia infobox row
)

// AllSources lists every evidence source
var AllSources = []Source{SourceKB, SourceText, SourceTable, SourceInfo}

// SourceSet is a set of allowed evidence sources
type SourceSet map[Source]struct{}

// NewSourceSet builds a set from source names, rejecting unknown names
func NewSourceSet(names ...string) (SourceSet, error) {
	set := make(SourceSet, len(names))
	for _, n := range names {
		s := Source(strings.ToLower(strings.TrimSpace(n)))
		switch s {
		case SourceKB, SourceText, SourceTable, SourceInfo:
			set[s] = struct{}{}
		case "":
		default:
			return nil, fmt.Errorf("unknown evidence source %q", n)
		}
	}
	return set, nil
}

// Has reports whether s is allowed
func (ss SourceSet) Has(s Source) bool {
	_, ok := ss[s]
	return ok
}

// Names returns the sources in canonical order
func (ss SourceSet) Names() []string {
	var out []string
	for _, s := range AllSources {
		if ss.Has(s) {
			out = append(out, string(s))
		}
	}
	return out
}

// KBItem is a knowledge-base item reference
type KBItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Disambiguation links a surface mention to a KB item id or a KB timestamp
type Disambiguation struct {
	Mention string
	ID      string
}

// MarshalJSON encodes the pair as [mention, id]
func (d Disambiguation) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{d.Mention, d.ID})
}

// UnmarshalJSON decodes a [mention, id] pair
func (d *Disambiguation) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	d.Mention, d.ID = pair[0], pair[1]
	return nil
}

// TempInfo holds timespans found in an evidence and how they were disambiguated
type TempInfo struct {
	Timespans       []Timespan       `json:"timespans"`
	Disambiguations []Disambiguation `json:"disambiguations"`
}
