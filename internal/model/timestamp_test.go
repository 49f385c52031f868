package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want Timestamp
		ok   bool
	}{
		{"1999-05-24", 19990524, true},
		{"1999-05-24T00:00:00Z", 19990524, true},
		{`"2001-01-01T00:00:00Z"`, 20010101, true},
		{"-0044-03-15", -440315, true},
		{"+1990-01-01T00:00:00Z", 19900101, true},
		{"20000101", 20000101, true},
		{"", 0, false},
		{"-", 0, false},
		{"May 1999", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestTimestampRendering(t *testing.T) {
	ts := NewDate(1999, 5, 24)
	assert.Equal(t, Timestamp(19990524), ts)
	assert.Equal(t, "1999-05-24", ts.Date())
	assert.Equal(t, "1999-05-24T00:00:00Z", ts.KB())

	bc := NewDate(-44, 3, 15)
	assert.Equal(t, Timestamp(-440315), bc)
	assert.Equal(t, "-0044-03-15", bc.Date())
	assert.Equal(t, -44, bc.Year())

	assert.Equal(t, "-inf", NegInf.String())
	assert.Equal(t, "", PosInf.Date())
}

func TestTimestampMonthDay(t *testing.T) {
	md, ok := Timestamp(19991231).MonthDay()
	require.True(t, ok)
	assert.Equal(t, 1231, md)

	_, ok = PosInf.MonthDay()
	assert.False(t, ok)

	assert.True(t, Timestamp(19990101).IsYearStart())
	assert.True(t, Timestamp(-440101).IsYearStart())
	assert.False(t, NegInf.IsYearStart())
	assert.Equal(t, Timestamp(19990101), Timestamp(19991231).YearStart())
	assert.Equal(t, Timestamp(19991231), Timestamp(19990524).YearEnd())
	assert.Equal(t, PosInf, PosInf.YearEnd())
}

func TestNewTimespanRejectsInverted(t *testing.T) {
	_, ok := NewTimespan(20050101, 20000101)
	assert.False(t, ok)

	span, ok := NewTimespan(20000101, 20000101)
	require.True(t, ok)
	assert.Equal(t, PointSpan(20000101), span)
}

func TestParseTimespanOpenSides(t *testing.T) {
	span, ok := ParseTimespan("2000-01-01T00:00:00Z", "")
	require.True(t, ok)
	assert.Equal(t, Timestamp(20000101), span.Begin)
	assert.Equal(t, PosInf, span.End)

	span, ok = ParseTimespan("", "2000-12-31")
	require.True(t, ok)
	assert.Equal(t, NegInf, span.Begin)
}

func TestTimespanJSON(t *testing.T) {
	data, err := json.Marshal(Timespan{Begin: 20000101, End: PosInf})
	require.NoError(t, err)
	assert.JSONEq(t, `["2000-01-01", null]`, string(data))

	var span Timespan
	require.NoError(t, json.Unmarshal([]byte(`["1999-01-01T00:00:00Z", "1999-12-31T00:00:00Z"]`), &span))
	assert.Equal(t, Timespan{Begin: 19990101, End: 19991231}, span)

	require.NoError(t, json.Unmarshal([]byte(`[19990101, null]`), &span))
	assert.Equal(t, Timespan{Begin: 19990101, End: PosInf}, span)

	assert.Error(t, json.Unmarshal([]byte(`["2005-01-01", "2000-01-01"]`), &span))
}

func TestTemporalValuesJSON(t *testing.T) {
	values := TemporalValues{OrdinalLatest, Timespan{Begin: 19990101, End: 19991231}, Ordinal(3)}
	data, err := json.Marshal(values)
	require.NoError(t, err)
	assert.JSONEq(t, `[-1, ["1999-01-01", "1999-12-31"], 3]`, string(data))

	var decoded TemporalValues
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, values, decoded)
	assert.Equal(t, []Ordinal{-1, 3}, decoded.Ordinals())
	assert.Len(t, decoded.Timespans(), 1)

	// inverted pairs are dropped
	require.NoError(t, json.Unmarshal([]byte(`[["2005-01-01", "2000-01-01"], 2]`), &decoded))
	assert.Equal(t, TemporalValues{Ordinal(2)}, decoded)
}

func TestParseSignal(t *testing.T) {
	assert.Equal(t, SignalBefore, ParseSignal("before"))
	assert.Equal(t, SignalFinish, ParseSignal(" FINISH "))
	assert.Equal(t, SignalOverlap, ParseSignal("No signal"))
	assert.Equal(t, SignalOverlap, ParseSignal(""))
}

func TestFormQueryAndDate(t *testing.T) {
	f := StructuredTemporalForm{Entity: "Barack Obama", Relation: "president of", AnswerType: "country"}
	assert.Equal(t, "Barack Obama president of country", f.Query())
	assert.False(t, f.AsksForDate())

	f.AnswerType = "Year"
	assert.True(t, f.AsksForDate())

	f = StructuredTemporalForm{Relation: "winner", AnswerType: "  "}
	assert.Equal(t, "winner", f.Query())
}

func TestSourceSet(t *testing.T) {
	set, err := NewSourceSet("kb", "TEXT", "")
	require.NoError(t, err)
	assert.True(t, set.Has(SourceKB))
	assert.True(t, set.Has(SourceText))
	assert.False(t, set.Has(SourceInfo))
	assert.Equal(t, []string{"kb", "text"}, set.Names())

	_, err = NewSourceSet("web")
	assert.Error(t, err)
}

func TestConfigDefaultsValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Pipeline.MaxDepth)
	assert.Equal(t, 5, cfg.Annotate.Workers)

	cfg.Annotate.Method = "heideltime"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Annotate.TieBreak = "random"
	assert.Error(t, cfg.Validate())
}
