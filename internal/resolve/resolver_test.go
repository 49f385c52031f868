package resolve

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/tempora/internal/model"
)

type fakeGenerator struct {
	sq  model.Subquestion
	ok  bool
	err error
}

func (f *fakeGenerator) Generate(ctx context.Context, question string) (model.Subquestion, bool, error) {
	return f.sq, f.ok, f.err
}

// fakePipeline answers questions from a fixed table
type fakePipeline struct {
	mu      sync.Mutex
	answers map[string][]model.RankedAnswer
	asked   []string
	depths  []int
	err     error
}

func (f *fakePipeline) AnswerAt(ctx context.Context, in *model.Instance, sources model.SourceSet, depth int) (*model.Instance, error) {
	f.mu.Lock()
	f.asked = append(f.asked, in.Question)
	f.depths = append(f.depths, depth)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := *in
	out.RankedAnswers = f.answers[in.Question]
	return &out, nil
}

func ranked(ids ...string) []model.RankedAnswer {
	out := make([]model.RankedAnswer, len(ids))
	for i, id := range ids {
		out[i] = model.RankedAnswer{Answer: model.KBItem{ID: id, Label: id}, Rank: i + 1}
	}
	return out
}

func ts(raw string) model.Timestamp {
	t, _ := model.ParseTimestamp(raw)
	return t
}

func TestResolve_SelfRecursionGuard(t *testing.T) {
	gen := &fakeGenerator{sq: model.Subquestion{Text: "When Did WW2 End", AnswerType: "date"}, ok: true}
	pipe := &fakePipeline{}
	r := New(gen, pipe, 2)

	spans, traces := r.Resolve(context.Background(), &model.Instance{Question: "when did ww2 end"}, 1, nil, 0)
	assert.Empty(t, spans)
	assert.Empty(t, traces)
	assert.Empty(t, pipe.asked)
}

func TestResolve_NothingGenerated(t *testing.T) {
	pipe := &fakePipeline{}
	in := &model.Instance{Question: "who led the US during WW2"}

	spans, traces := New(&fakeGenerator{ok: false}, pipe, 2).Resolve(context.Background(), in, 1, nil, 0)
	assert.Empty(t, spans)
	assert.Empty(t, traces)

	spans, _ = New(&fakeGenerator{err: errors.New("model down")}, pipe, 2).Resolve(context.Background(), in, 1, nil, 0)
	assert.Empty(t, spans)
	assert.Empty(t, pipe.asked)
}

func TestResolve_DepthBound(t *testing.T) {
	gen := &fakeGenerator{sq: model.Subquestion{Text: "when was WW2", AnswerType: "date"}, ok: true}
	pipe := &fakePipeline{}
	r := New(gen, pipe, 2)

	spans, traces := r.Resolve(context.Background(), &model.Instance{Question: "who led the US during WW2"}, 1, nil, 2)
	assert.Empty(t, spans)
	assert.Empty(t, traces)
	assert.Empty(t, pipe.asked)

	assert.Equal(t, DefaultMaxDepth, New(gen, pipe, -1).MaxDepth())
}

func TestResolve_DateBranch(t *testing.T) {
	gen := &fakeGenerator{sq: model.Subquestion{Text: "when did Obama become president", AnswerType: "date"}, ok: true}
	pipe := &fakePipeline{answers: map[string][]model.RankedAnswer{
		"when did Obama become president": ranked("2009-01-01T00:00:00Z", "2009-01-20T00:00:00Z", "Q76"),
	}}
	r := New(gen, pipe, 2)

	in := &model.Instance{Question: "who was vice president when Obama became president", ReferenceTime: "2023-01-01"}
	spans, traces := r.Resolve(context.Background(), in, 2, nil, 0)

	require.Equal(t, []model.Timespan{
		{Begin: 20090101, End: 20091231},
		{Begin: 20090120, End: 20090120},
	}, spans)
	require.Len(t, traces, 1)
	assert.Equal(t, 1, traces[0].Depth)
	assert.Equal(t, []string{"2009-01-01", "2009-01-20"}, traces[0].Timestamps)
	assert.NotEmpty(t, traces[0].ID)
	assert.Equal(t, []int{1}, pipe.depths)
}

func TestResolve_IntervalBranch(t *testing.T) {
	gen := &fakeGenerator{sq: model.Subquestion{Text: "WW2", AnswerType: "time interval"}, ok: true}
	pipe := &fakePipeline{answers: map[string][]model.RankedAnswer{
		"WW2 start date": ranked("1939-09-01T00:00:00Z"),
		"WW2 end date":   ranked("1945-09-02T00:00:00Z"),
	}}
	r := New(gen, pipe, 2)

	spans, traces := r.Resolve(context.Background(), &model.Instance{Question: "who led the US during WW2"}, 1, nil, 1)
	assert.Equal(t, []model.Timespan{{Begin: 19390901, End: 19450902}}, spans)
	require.Len(t, traces, 2)
	assert.Equal(t, "WW2 start date", traces[0].Question)
	assert.Equal(t, "WW2 end date", traces[1].Question)
	assert.ElementsMatch(t, []int{2, 2}, pipe.depths)
}

func TestResolve_PipelineFailureDegrades(t *testing.T) {
	gen := &fakeGenerator{sq: model.Subquestion{Text: "WW2", AnswerType: "time interval"}, ok: true}
	pipe := &fakePipeline{err: errors.New("kb unavailable")}

	spans, traces := New(gen, pipe, 2).Resolve(context.Background(), &model.Instance{Question: "q"}, 1, nil, 0)
	assert.Empty(t, spans)
	assert.Len(t, traces, 2)
}

func TestTopTimestamps(t *testing.T) {
	answers := []model.RankedAnswer{
		{Answer: model.KBItem{ID: "Q1"}, Rank: 1},
		{Answer: model.KBItem{ID: "1999-01-01T00:00:00Z"}, Rank: 2},
		{Answer: model.KBItem{ID: "2001-05-05T00:00:00Z"}, Rank: 3},
	}
	assert.Empty(t, TopTimestamps(1, answers))
	assert.Equal(t, []model.Timestamp{19990101}, TopTimestamps(2, answers))
	assert.Len(t, TopTimestamps(5, answers), 2)
}

func TestPairTimespans(t *testing.T) {
	// open-ended fallback when only a start is known
	assert.Equal(t, []model.Timespan{{Begin: ts("2000-01-01"), End: model.PosInf}},
		PairTimespans([]model.Timestamp{ts("2000-01-01")}, nil))

	assert.Equal(t, []model.Timespan{{Begin: model.NegInf, End: ts("2005-03-01")}},
		PairTimespans(nil, []model.Timestamp{ts("2005-03-01")}))

	// equal bare years widen to the whole year
	assert.Equal(t, []model.Timespan{{Begin: 20000101, End: 20001231}},
		PairTimespans([]model.Timestamp{20000101}, []model.Timestamp{20000101}))

	// inverted pairs are dropped, valid ones kept
	assert.Equal(t, []model.Timespan{{Begin: 19900101, End: 19950101}},
		PairTimespans([]model.Timestamp{19900101, 20000101}, []model.Timestamp{19950101}))

	// nothing pairs up: keep both sides open
	assert.Equal(t, []model.Timespan{
		{Begin: 20000101, End: model.PosInf},
		{Begin: model.NegInf, End: 19950101},
	}, PairTimespans([]model.Timestamp{20000101}, []model.Timestamp{19950101}))

	assert.Empty(t, PairTimespans(nil, nil))
}

func TestDateSpans(t *testing.T) {
	assert.Equal(t, []model.Timespan{
		{Begin: 19450101, End: 19451231},
		{Begin: 19450508, End: 19450508},
	}, DateSpans([]model.Timestamp{19450101, 19450508}))
}
