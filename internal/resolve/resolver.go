// Package resolve turns an implicit temporal constraint into timespans by
// answering a generated sub-question with the full pipeline.
package resolve

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/tempora/internal/model"
)

// DefaultMaxDepth bounds nested sub-question resolution
const DefaultMaxDepth = 2

// Suffixes appended to a time-interval sub-question
const (
	SuffixStart = "start date"
	SuffixEnd   = "end date"
)

// Generator produces the intermediate question for an implicit question.
// ok is false when nothing usable was generated.
type Generator interface {
	Generate(ctx context.Context, question string) (sq model.Subquestion, ok bool, err error)
}

// Pipeline answers a question instance at a given nesting depth
type Pipeline interface {
	AnswerAt(ctx context.Context, in *model.Instance, sources model.SourceSet, depth int) (*model.Instance, error)
}

// Resolver resolves implicit temporal values
type Resolver struct {
	generator Generator
	pipeline  Pipeline
	maxDepth  int
	log       *zap.Logger
}

// New creates a resolver. maxDepth < 0 selects DefaultMaxDepth.
func New(generator Generator, pipeline Pipeline, maxDepth int) *Resolver {
	if maxDepth < 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{
		generator: generator,
		pipeline:  pipeline,
		maxDepth:  maxDepth,
		log:       zap.L().With(zap.String("component", "resolve")),
	}
}

// MaxDepth returns the nesting bound
func (r *Resolver) MaxDepth() int {
	return r.maxDepth
}

// Resolve generates a sub-question for in, answers it through the pipeline
// at depth+1 and converts the timestamp answers into timespans. Every
// failure yields no timespans; the question then proceeds unconstrained.
func (r *Resolver) Resolve(ctx context.Context, in *model.Instance, topk int, sources model.SourceSet, depth int) ([]model.Timespan, []model.SubquestionTrace) {
	log := r.log.With(zap.String("question", in.Question), zap.Int("depth", depth))

	if depth >= r.maxDepth {
		log.Info("depth bound reached, leaving constraint unresolved", zap.Int("max_depth", r.maxDepth))
		return nil, nil
	}

	sq, ok, err := r.generator.Generate(ctx, in.Question)
	if err != nil {
		log.Warn("sub-question generation failed", zap.Error(err))
		return nil, nil
	}
	sq.Text = strings.TrimSpace(sq.Text)
	if !ok || sq.Text == "" {
		log.Info("no sub-question generated")
		return nil, nil
	}
	if strings.EqualFold(sq.Text, strings.TrimSpace(in.Question)) {
		log.Info("sub-question repeats the question, skipping", zap.String("subquestion", sq.Text))
		return nil, nil
	}
	log.Info("generated sub-question", zap.String("subquestion", sq.Text), zap.String("answer_type", sq.AnswerType))

	if sq.AsksForInterval() {
		return r.resolveInterval(ctx, in, sq, topk, sources, depth)
	}

	trace := r.ask(ctx, in, sq.Text, sq.AnswerType, topk, sources, depth)
	spans := DateSpans(timestamps(trace))
	log.Info("resolved temporal value", zap.Int("timespans", len(spans)))
	return spans, []model.SubquestionTrace{trace}
}

// resolveInterval asks for the start and the end date in parallel and pairs them
func (r *Resolver) resolveInterval(ctx context.Context, in *model.Instance, sq model.Subquestion, topk int, sources model.SourceSet, depth int) ([]model.Timespan, []model.SubquestionTrace) {
	traces := make([]model.SubquestionTrace, 2)

	g, gctx := errgroup.WithContext(ctx)
	for i, suffix := range []string{SuffixStart, SuffixEnd} {
		i, suffix := i, suffix
		g.Go(func() error {
			traces[i] = r.ask(gctx, in, sq.Text+" "+suffix, sq.AnswerType, topk, sources, depth)
			return nil
		})
	}
	_ = g.Wait()

	spans := PairTimespans(timestamps(traces[0]), timestamps(traces[1]))
	r.log.Info("resolved temporal interval",
		zap.String("question", in.Question),
		zap.Int("timespans", len(spans)))
	return spans, traces
}

// ask answers one sub-question one level deeper and records the trace
func (r *Resolver) ask(ctx context.Context, in *model.Instance, question, answerType string, topk int, sources model.SourceSet, depth int) model.SubquestionTrace {
	sub := &model.Instance{
		ID:            uuid.NewString(),
		Question:      question,
		ReferenceTime: in.ReferenceTime,
		Answers:       in.Answers,
	}
	trace := model.SubquestionTrace{
		ID:         sub.ID,
		Question:   question,
		AnswerType: answerType,
		Depth:      depth + 1,
	}

	answered, err := r.pipeline.AnswerAt(ctx, sub, sources, depth+1)
	if err != nil {
		r.log.Warn("sub-question could not be answered", zap.String("subquestion", question), zap.Error(err))
		return trace
	}

	trace.RankedAnswers = answered.RankedAnswers
	for _, ts := range TopTimestamps(topk, answered.RankedAnswers) {
		trace.Timestamps = append(trace.Timestamps, ts.Date())
	}
	return trace
}

func timestamps(trace model.SubquestionTrace) []model.Timestamp {
	out := make([]model.Timestamp, 0, len(trace.Timestamps))
	for _, raw := range trace.Timestamps {
		if ts, ok := model.ParseTimestamp(raw); ok {
			out = append(out, ts)
		}
	}
	return out
}

// TopTimestamps collects the timestamp answers ranked within topk. Answers
// are read in rank order and reading stops at the first rank beyond topk.
func TopTimestamps(topk int, ranked []model.RankedAnswer) []model.Timestamp {
	var out []model.Timestamp
	for _, a := range ranked {
		if a.Rank > topk {
			break
		}
		if ts, ok := a.Timestamp(); ok {
			out = append(out, ts)
		}
	}
	return out
}

// DateSpans turns date answers into timespans: a Jan 1 answer stands for
// its whole year, any other date for that single day
func DateSpans(dates []model.Timestamp) []model.Timespan {
	spans := make([]model.Timespan, 0, len(dates))
	for _, ts := range dates {
		if ts.IsYearStart() {
			spans = append(spans, model.Timespan{Begin: ts, End: ts.YearEnd()})
			continue
		}
		spans = append(spans, model.PointSpan(ts))
	}
	return spans
}

// PairTimespans builds every ordered (start, end) pair. A pair of equal Jan 1
// dates covers that year. When nothing pairs up, starts and ends are kept
// as open spans.
func PairTimespans(starts, ends []model.Timestamp) []model.Timespan {
	var spans []model.Timespan
	for _, s := range starts {
		for _, e := range ends {
			if s > e {
				continue
			}
			if s == e && e.IsYearStart() {
				e = e.YearEnd()
			}
			spans = append(spans, model.Timespan{Begin: s, End: e})
		}
	}
	if len(spans) > 0 {
		return spans
	}

	for _, s := range starts {
		spans = append(spans, model.Timespan{Begin: s, End: model.PosInf})
	}
	for _, e := range ends {
		spans = append(spans, model.Timespan{Begin: model.NegInf, End: e})
	}
	return spans
}
