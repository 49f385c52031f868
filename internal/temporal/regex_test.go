package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/tempora/internal/model"
)

func TestRegexAnnotatorKeepsLongestMention(t *testing.T) {
	a := NewRegexAnnotator(TieLater)
	sentence := "He served from 24 May 2001 – 2008 in office"

	dates := a.Annotate(sentence)
	require.Len(t, dates, 1)
	assert.Equal(t, "24 May 2001 – 2008", dates[0].Text)
	assert.Equal(t, dates[0].Text, sentence[dates[0].Span.Start:dates[0].Span.End])
	assert.Equal(t, model.Timespan{Begin: 20010524, End: 20081231}, dates[0].Timespan)
	assert.Len(t, dates[0].Disambiguations, 2)
}

func TestRegexAnnotatorTrimsPaddedRanges(t *testing.T) {
	a := NewRegexAnnotator(TieLater)
	sentence := "The war lasted 1948 to 2005 in total"

	dates := a.Annotate(sentence)
	require.Len(t, dates, 1)
	assert.Equal(t, "1948 to 2005", dates[0].Text)
	assert.Equal(t, model.TextSpan{Start: 15, End: 27}, dates[0].Span)
	assert.Equal(t, model.Timespan{Begin: 19480101, End: 20051231}, dates[0].Timespan)
}

func TestRegexAnnotatorTextDates(t *testing.T) {
	a := NewRegexAnnotator(TieLater)

	dates := a.Annotate("She was born on May 29, 2000 in Ohio")
	require.Len(t, dates, 1)
	assert.Equal(t, "May 29, 2000", dates[0].Text)
	assert.Equal(t, DaySpan(2000, 5, 29), dates[0].Timespan)

	dates = a.Annotate("The album was released in March 1999.")
	require.Len(t, dates, 1)
	assert.Equal(t, "March 1999", dates[0].Text)
	assert.Equal(t, MonthSpan(1999, 3), dates[0].Timespan)
}

func TestRegexAnnotatorNumericTokens(t *testing.T) {
	a := NewRegexAnnotator(TieLater)
	sentence := "Signed on 24.05.1999; ratified (2001)."

	dates := a.Annotate(sentence)
	require.Len(t, dates, 2)

	assert.Equal(t, "24.05.1999", dates[0].Text)
	assert.Equal(t, DaySpan(1999, 5, 24), dates[0].Timespan)
	assert.Equal(t, "24.05.1999", sentence[dates[0].Span.Start:dates[0].Span.End])

	assert.Equal(t, "2001", dates[1].Text)
	assert.Equal(t, YearSpan(2001), dates[1].Timespan)
	assert.Equal(t, "2001", sentence[dates[1].Span.Start:dates[1].Span.End])
	assert.Equal(t, "2001", dates[1].Disambiguations[0].Mention)
	assert.Equal(t, "2001-01-01T00:00:00Z", dates[1].Disambiguations[0].ID)
}

func TestNumericDatesRepeatedTokenOffsets(t *testing.T) {
	sentence := "1999 and again 1999"
	dates := NumericDates(sentence)
	require.Len(t, dates, 2)
	assert.Equal(t, model.TextSpan{Start: 0, End: 4}, dates[0].Span)
	assert.Equal(t, model.TextSpan{Start: 15, End: 19}, dates[1].Span)
}

func TestRegexAnnotatorNoDates(t *testing.T) {
	a := NewRegexAnnotator(TieLater)
	assert.Empty(t, a.Annotate("who was the first president of the united states"))
}

func ann(start, end int, method string) model.DateAnnotation {
	return model.DateAnnotation{Span: model.TextSpan{Start: start, End: end}, Method: method}
}

func TestMergeDatesLongestWins(t *testing.T) {
	merged := MergeDates(
		[]model.DateAnnotation{ann(0, 10, "a")},
		[]model.DateAnnotation{ann(5, 8, "b"), ann(20, 24, "c")},
		TieLater,
	)
	require.Len(t, merged, 2)
	assert.Equal(t, "a", merged[0].Method)
	assert.Equal(t, "c", merged[1].Method)
}

func TestMergeDatesTieBreak(t *testing.T) {
	first := []model.DateAnnotation{ann(0, 4, "first")}
	second := []model.DateAnnotation{ann(2, 6, "second")}

	later := MergeDates(first, second, TieLater)
	require.Len(t, later, 1)
	assert.Equal(t, "second", later[0].Method)

	earlier := MergeDates(first, second, TieEarlier)
	require.Len(t, earlier, 1)
	assert.Equal(t, "first", earlier[0].Method)
}

func TestMergeDatesIdenticalSpan(t *testing.T) {
	first := []model.DateAnnotation{ann(3, 7, "first")}
	second := []model.DateAnnotation{ann(3, 7, "second")}

	merged := MergeDates(first, second, TieLater)
	require.Len(t, merged, 1)
	assert.Equal(t, "second", merged[0].Method)

	merged = MergeDates(first, second, TieEarlier)
	require.Len(t, merged, 1)
	assert.Equal(t, "first", merged[0].Method)
}

func TestOverlapsTouching(t *testing.T) {
	assert.True(t, Overlaps(model.TextSpan{Start: 0, End: 4}, model.TextSpan{Start: 4, End: 8}))
	assert.False(t, Overlaps(model.TextSpan{Start: 0, End: 4}, model.TextSpan{Start: 5, End: 8}))
	assert.True(t, Overlaps(model.TextSpan{Start: 2, End: 3}, model.TextSpan{Start: 0, End: 8}))
}

func TestParseTieBreak(t *testing.T) {
	tb, err := ParseTieBreak("")
	require.NoError(t, err)
	assert.Equal(t, TieLater, tb)

	tb, err = ParseTieBreak("Earlier")
	require.NoError(t, err)
	assert.Equal(t, TieEarlier, tb)

	_, err = ParseTieBreak("random")
	assert.Error(t, err)
}
