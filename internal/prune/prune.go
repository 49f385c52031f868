// Package prune keeps the evidences that are faithful to a question's
// temporal constraint.
package prune

import (
	"go.uber.org/zap"

	"github.com/ppiankov/tempora/internal/model"
)

// Pruner filters evidences against a structured temporal form
type Pruner struct {
	log *zap.Logger
}

// New creates a new pruner
func New() *Pruner {
	return &Pruner{log: zap.L().With(zap.String("component", "prune"))}
}

// PruneInstance prunes the candidate evidences of an instance
func (p *Pruner) PruneInstance(in *model.Instance, sources model.SourceSet) []model.Evidence {
	if in.Form == nil {
		return FilterSources(in.Evidences, sources)
	}
	return p.Prune(*in.Form, in.Evidences, sources)
}

// Prune returns the evidences that satisfy the temporal constraint of form.
// Questions asking for a date keep only evidences with temporal
// information. Timespan constraints are checked with the form's signal.
// Without a usable timespan every evidence from an allowed source is kept.
func (p *Pruner) Prune(form model.StructuredTemporalForm, evidences []model.Evidence, sources model.SourceSet) []model.Evidence {
	if form.AsksForDate() {
		kept := make([]model.Evidence, 0, len(evidences))
		for _, e := range evidences {
			if sources.Has(e.Source) && e.HasTempInfo() {
				kept = append(kept, e)
			}
		}
		p.log.Debug("pruned for date answer", zap.Int("in", len(evidences)), zap.Int("kept", len(kept)))
		return kept
	}

	constraints := ValidSpans(form.Values.Timespans())
	if len(constraints) == 0 {
		return FilterSources(evidences, sources)
	}

	kept := make([]model.Evidence, 0, len(evidences))
	for _, e := range evidences {
		if !sources.Has(e.Source) || !e.HasTempInfo() {
			continue
		}
		spans := ValidSpans(e.TempInfo.Timespans)
		if len(spans) == 0 {
			continue
		}
		if Satisfies(form.Signal, spans, constraints) {
			kept = append(kept, e)
		}
	}
	p.log.Debug("pruned by timespan",
		zap.String("signal", string(form.Signal)),
		zap.Int("constraints", len(constraints)),
		zap.Int("in", len(evidences)),
		zap.Int("kept", len(kept)))
	return kept
}

// FilterSources keeps the evidences whose source is allowed
func FilterSources(evidences []model.Evidence, sources model.SourceSet) []model.Evidence {
	kept := make([]model.Evidence, 0, len(evidences))
	for _, e := range evidences {
		if sources.Has(e.Source) {
			kept = append(kept, e)
		}
	}
	return kept
}

// ValidSpans drops spans whose begin lies after their end
func ValidSpans(spans []model.Timespan) []model.Timespan {
	out := make([]model.Timespan, 0, len(spans))
	for _, s := range spans {
		if s.Begin <= s.End {
			out = append(out, s)
		}
	}
	return out
}
