package annotate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/ordinal"
	"github.com/ppiankov/tempora/internal/temporal"
	"github.com/ppiankov/tempora/internal/worker"
)

// DateTagger returns the raw TIMEX tags of an external date-tagging service
type DateTagger interface {
	Tag(ctx context.Context, text, referenceTime string) ([]model.TimexTag, error)
}

// BatchDateTagger is a DateTagger that can tag many texts in one call
type BatchDateTagger interface {
	DateTagger
	TagBatch(ctx context.Context, reqs []model.TagRequest) ([][]model.TimexTag, error)
}

// Annotator finds dates and ordinals in sentences
type Annotator struct {
	method    string
	tieBreak  temporal.TieBreak
	reference string
	workers   int
	regex     *temporal.RegexAnnotator
	tagger    DateTagger
	log       *zap.Logger
}

// New creates an annotator from configuration. tagger may be nil when the
// method is regex.
func New(cfg model.AnnotateConfig, tagger DateTagger) (*Annotator, error) {
	tb, err := temporal.ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return nil, err
	}

	method := cfg.Method
	if method == "" {
		method = model.MethodRegex
	}
	switch method {
	case model.MethodRegex:
	case model.MethodSUTime, model.MethodSUTimeRegex:
		if tagger == nil {
			return nil, fmt.Errorf("annotate method %q needs a date-tagging service", method)
		}
	default:
		return nil, fmt.Errorf("unknown annotate method %q (supported: regex, sutime, sutime_regex)", method)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = worker.DefaultWorkers
	}

	return &Annotator{
		method:    method,
		tieBreak:  tb,
		reference: cfg.ReferenceTime,
		workers:   workers,
		regex:     temporal.NewRegexAnnotator(tb),
		tagger:    tagger,
		log:       zap.L().With(zap.String("component", "annotate")),
	}, nil
}

// Method returns the date detection method in use
func (a *Annotator) Method() string {
	return a.method
}

// WithMethod returns a copy using another date detection method. Methods
// needing the service fall back to regex when no tagger is configured.
func (a *Annotator) WithMethod(method string) *Annotator {
	cp := *a
	switch method {
	case model.MethodSUTime, model.MethodSUTimeRegex:
		if a.tagger != nil {
			cp.method = method
		} else {
			cp.method = model.MethodRegex
		}
	default:
		cp.method = model.MethodRegex
	}
	return &cp
}

func (a *Annotator) referenceTime(ref string) string {
	if ref != "" {
		return ref
	}
	if a.reference != "" {
		return a.reference
	}
	return time.Now().UTC().Format("2006-01-02")
}

func (a *Annotator) usesService() bool {
	return a.method == model.MethodSUTime || a.method == model.MethodSUTimeRegex
}

// Annotate finds the dates and ordinals of one sentence. Service failures
// degrade to regex detection; only cancellation is returned as an error.
func (a *Annotator) Annotate(ctx context.Context, sentence, referenceTime string) (model.Annotations, error) {
	ref := a.referenceTime(referenceTime)

	var tagged []model.DateAnnotation
	ok := false
	if a.usesService() {
		tags, err := a.tagger.Tag(ctx, sentence, ref)
		if err != nil {
			if ctx.Err() != nil {
				return model.Annotations{}, ctx.Err()
			}
			a.log.Warn("date tagging failed, using regex", zap.Error(err))
		} else {
			tagged, ok = temporal.FromTags(sentence, tags, ref), true
		}
	}
	return a.combine(sentence, tagged, ok), nil
}

// Dates returns only the date annotations of a sentence
func (a *Annotator) Dates(ctx context.Context, sentence, referenceTime string) ([]model.DateAnnotation, error) {
	ann, err := a.Annotate(ctx, sentence, referenceTime)
	return ann.Dates, err
}

// AnnotateBatch annotates many sentences concurrently. out[i] always belongs
// to reqs[i].
func (a *Annotator) AnnotateBatch(ctx context.Context, reqs []model.TagRequest) ([]model.Annotations, error) {
	reqs = append([]model.TagRequest(nil), reqs...)
	for i := range reqs {
		reqs[i].ReferenceTime = a.referenceTime(reqs[i].ReferenceTime)
	}

	tagged, ok := a.tagBatch(ctx, reqs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return worker.Map(ctx, a.workers, reqs, func(ctx context.Context, i int, r model.TagRequest) (model.Annotations, error) {
		return a.combine(r.Text, tagged[i], ok[i]), nil
	})
}

// tagBatch runs the service over all requests, one batched call when the
// tagger supports it. ok[i] is false where regex must stand in.
func (a *Annotator) tagBatch(ctx context.Context, reqs []model.TagRequest) ([][]model.DateAnnotation, []bool) {
	tagged := make([][]model.DateAnnotation, len(reqs))
	ok := make([]bool, len(reqs))
	if !a.usesService() || len(reqs) == 0 {
		return tagged, ok
	}

	if bt, isBatch := a.tagger.(BatchDateTagger); isBatch {
		all, err := bt.TagBatch(ctx, reqs)
		if err != nil {
			if ctx.Err() == nil {
				a.log.Warn("batch date tagging failed, using regex", zap.Int("texts", len(reqs)), zap.Error(err))
			}
			return tagged, ok
		}
		for i, r := range reqs {
			tagged[i], ok[i] = temporal.FromTags(r.Text, all[i], r.ReferenceTime), true
		}
		return tagged, ok
	}

	_, _ = worker.Map(ctx, a.workers, reqs, func(ctx context.Context, i int, r model.TagRequest) (struct{}, error) {
		tags, err := a.tagger.Tag(ctx, r.Text, r.ReferenceTime)
		if err != nil {
			if ctx.Err() == nil {
				a.log.Warn("date tagging failed, using regex", zap.Int("index", i), zap.Error(err))
			}
			return struct{}{}, nil
		}
		tagged[i], ok[i] = temporal.FromTags(r.Text, tags, r.ReferenceTime), true
		return struct{}{}, nil
	})
	return tagged, ok
}

// combine builds the final annotations from the service dates (when
// serviceOK), regex dates and ordinals
func (a *Annotator) combine(sentence string, tagged []model.DateAnnotation, serviceOK bool) model.Annotations {
	var dates []model.DateAnnotation
	switch {
	case a.method == model.MethodSUTimeRegex && serviceOK:
		dates = temporal.MergeDates(tagged, a.regex.Annotate(sentence), a.tieBreak)
	case a.method == model.MethodSUTime && serviceOK:
		dates = tagged
	default:
		dates = a.regex.Annotate(sentence)
	}

	return model.Annotations{
		Dates:    dates,
		Ordinals: RemoveOrdinalsInDates(ordinal.AnnotateSentence(sentence), dates),
	}
}

// RemoveOrdinalsInDates drops ordinals lying inside any date span
func RemoveOrdinalsInDates(ordinals []model.OrdinalAnnotation, dates []model.DateAnnotation) []model.OrdinalAnnotation {
	if len(ordinals) == 0 || len(dates) == 0 {
		return ordinals
	}

	kept := ordinals[:0:0]
	for _, o := range ordinals {
		inside := false
		for _, d := range dates {
			if o.Span.Within(d.Span) {
				inside = true
				break
			}
		}
		if !inside {
			kept = append(kept, o)
		}
	}
	return kept
}
