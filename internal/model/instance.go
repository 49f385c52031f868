package model

import (
	"strings"
	"time"
)

// Instance is one question moving through the pipeline
type Instance struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	ReferenceTime string   `json:"reference_time,omitempty"` // Creation date of the question, YYYY-MM-DD
	Answers       []KBItem `json:"answers,omitempty"`        // Gold answers, when known

	Form        *StructuredTemporalForm `json:"tsf,omitempty"`
	Annotations *Annotations            `json:"annotations,omitempty"`
	Entities    []KBItem                `json:"question_entities,omitempty"`
	Evidences   []Evidence              `json:"candidate_evidences,omitempty"`
	Faithful    []Evidence              `json:"faithful_evidences,omitempty"`

	Subquestions  []SubquestionTrace `json:"subquestions,omitempty"`
	RankedAnswers []RankedAnswer     `json:"ranked_answers,omitempty"`
}

// Reference returns the reference time, defaulting to today's date
func (in Instance) Reference() string {
	if strings.TrimSpace(in.ReferenceTime) != "" {
		return in.ReferenceTime
	}
	return time.Now().UTC().Format("2006-01-02")
}

// RankedAnswer is a candidate answer with its rank (1-based) and score
type RankedAnswer struct {
	Answer KBItem  `json:"answer"`
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"`
}

// Timestamp returns the answer as a timestamp when the answer id is one
func (r RankedAnswer) Timestamp() (Timestamp, bool) {
	if !IsTimestampID(r.Answer.ID) {
		return 0, false
	}
	return ParseTimestamp(r.Answer.ID)
}

// IsTimestampID reports whether a KB id is a timestamp literal rather than an item
func IsTimestampID(id string) bool {
	id = strings.Trim(strings.TrimSpace(id), `"`)
	return strings.HasSuffix(id, wikidataSuffix)
}

// SubquestionTrace records one sub-question asked while resolving an implicit constraint
type SubquestionTrace struct {
	ID            string         `json:"id"`
	Question      string         `json:"question"`
	AnswerType    string         `json:"answer_type"`
	Depth         int            `json:"depth"`
	Timestamps    []string       `json:"timestamps,omitempty"` // Timestamp answers within top-k
	RankedAnswers []RankedAnswer `json:"ranked_answers,omitempty"`
}

// AnswerTypeTimeInterval marks a sub-question whose answer is a start and end date
const AnswerTypeTimeInterval = "time interval"

// Subquestion is an intermediate question generated for an implicit constraint
type Subquestion struct {
	Text       string `json:"question"`
	AnswerType string `json:"answer_type"` // date or time interval
}

// AsksForInterval reports whether the sub-question expects a time interval
func (s Subquestion) AsksForInterval() bool {
	return strings.EqualFold(strings.TrimSpace(s.AnswerType), AnswerTypeTimeInterval)
}
