package extract

import (
	"reflect"
	"testing"

	"github.com/ppiankov/tempora/internal/kb"
	"github.com/ppiankov/tempora/internal/model"
)

func item(id, label string) model.KBItem {
	return model.KBItem{ID: id, Label: label}
}

func TestFactEvidence_StartAndEnd(t *testing.T) {
	fact := kb.Fact{
		item("Q76", "Barack Obama"),
		item("P39", "position held"),
		item("Q11696", "President of the United States"),
		item("P580", "start time"),
		item(`"2009-01-20T00:00:00Z"`, "2009-01-20T00:00:00Z"),
		item("P582", "end time"),
		item("2017-01-01T00:00:00Z", "2017-01-01T00:00:00Z"),
	}

	ev := FactEvidence(fact, map[string]struct{}{"Q76": {}})

	wantText := "Barack Obama, position held, President of the United States, start time, 20 January 2009, end time, 2017"
	if ev.Text != wantText {
		t.Errorf("Text = %q, want %q", ev.Text, wantText)
	}
	if ev.Source != model.SourceKB {
		t.Errorf("Source = %q, want kb", ev.Source)
	}
	if ev.TempInfo == nil {
		t.Fatal("expected tempinfo")
	}

	// year-precision end widens to December 31st
	want := []model.Timespan{{Begin: 20090120, End: 20171231}}
	if !reflect.DeepEqual(ev.TempInfo.Timespans, want) {
		t.Errorf("Timespans = %v, want %v", ev.TempInfo.Timespans, want)
	}
	wantDates := []model.Disambiguation{
		{Mention: "20 January 2009", ID: "2009-01-20T00:00:00Z"},
		{Mention: "2017", ID: "2017-01-01T00:00:00Z"},
	}
	if !reflect.DeepEqual(ev.TempInfo.Disambiguations, wantDates) {
		t.Errorf("date disambiguations = %v, want %v", ev.TempInfo.Disambiguations, wantDates)
	}

	if len(ev.RetrievedFor) != 1 || ev.RetrievedFor[0].ID != "Q76" {
		t.Errorf("RetrievedFor = %v, want Q76", ev.RetrievedFor)
	}

	wantDis := []model.Disambiguation{
		{Mention: "Barack Obama", ID: "Q76"},
		{Mention: "President of the United States", ID: "Q11696"},
	}
	if !reflect.DeepEqual(ev.Disambiguations, wantDis) {
		t.Errorf("Disambiguations = %v, want %v", ev.Disambiguations, wantDis)
	}

	// predicates dropped, a year item follows each timestamp
	var ids []string
	for _, e := range ev.Entities {
		ids = append(ids, e.ID)
	}
	wantIDs := []string{
		"Q76", "Q11696",
		"2009-01-20T00:00:00Z", "2009-01-01T00:00:00Z",
		"2017-01-01T00:00:00Z", "2017-01-01T00:00:00Z",
	}
	if !reflect.DeepEqual(ids, wantIDs) {
		t.Errorf("entity ids = %v, want %v", ids, wantIDs)
	}

	// the input fact is left untouched
	if fact[4].ID != `"2009-01-20T00:00:00Z"` {
		t.Errorf("input fact was modified: %v", fact[4])
	}
}

func TestFactEvidence_PointInTime(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		want model.Timespan
	}{
		{"year precision", "1945-01-01T00:00:00Z", model.Timespan{Begin: 19450101, End: 19451231}},
		{"day precision", "1945-05-08T00:00:00Z", model.Timespan{Begin: 19450508, End: 19450508}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fact := kb.Fact{item("Q362", "World War II"), item("P585", "point in time"), item(tt.ts, tt.ts)}
			ev := FactEvidence(fact, nil)
			if ev.TempInfo == nil {
				t.Fatal("expected tempinfo")
			}
			if got := ev.TempInfo.Timespans[0]; got != tt.want {
				t.Errorf("timespan = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFactEvidence_OpenSpans(t *testing.T) {
	onlyStart := kb.Fact{item("Q1", "a"), item("P580", "start time"), item("2000-03-04T00:00:00Z", "")}
	ev := FactEvidence(onlyStart, nil)
	if got := ev.TempInfo.Timespans[0]; got != (model.Timespan{Begin: 20000304, End: model.PosInf}) {
		t.Errorf("start only = %v", got)
	}

	onlyEnd := kb.Fact{item("Q1", "a"), item("P582", "end time"), item("2000-03-04T00:00:00Z", "")}
	ev = FactEvidence(onlyEnd, nil)
	if got := ev.TempInfo.Timespans[0]; got != (model.Timespan{Begin: model.NegInf, End: 20000304}) {
		t.Errorf("end only = %v", got)
	}
}

func TestFactEvidence_NoDates(t *testing.T) {
	fact := kb.Fact{item("Q76", "Barack Obama"), item("P26", "spouse"), item("Q13133", "Michelle Obama")}
	ev := FactEvidence(fact, nil)
	if ev.TempInfo != nil {
		t.Errorf("expected no tempinfo, got %+v", ev.TempInfo)
	}
	if ev.HasTempInfo() {
		t.Error("HasTempInfo should be false")
	}
	if len(ev.RetrievedFor) != 0 {
		t.Errorf("RetrievedFor = %v, want none", ev.RetrievedFor)
	}
}

func TestTimestampLabel(t *testing.T) {
	tests := []struct {
		ts   model.Timestamp
		want string
	}{
		{19610804, "4 August 1961"},
		{19610101, "1961"},
		{20001231, "31 December 2000"},
		{-4900101, "-490"},
	}
	for _, tt := range tests {
		if got := TimestampLabel(tt.ts); got != tt.want {
			t.Errorf("TimestampLabel(%d) = %q, want %q", tt.ts, got, tt.want)
		}
	}
}

func TestDedupe(t *testing.T) {
	span := &model.TempInfo{Timespans: []model.Timespan{{Begin: 1, End: 2}}}
	evidences := []model.Evidence{
		{Text: "A, B", Source: model.SourceKB, Entities: []model.KBItem{item("Q1", "A")}, TempInfo: span,
			RetrievedFor: []model.KBItem{item("Q1", "A")}},
		{Text: "A, B", Source: model.SourceText, Entities: []model.KBItem{item("Q1", "A")}},
		{Text: "A, B", Source: model.SourceKB, Entities: []model.KBItem{item("Q1", "A"), item("Q2", "B")},
			RetrievedFor:    []model.KBItem{item("Q2", "B")},
			Disambiguations: []model.Disambiguation{{Mention: "B", ID: "Q2"}}},
	}

	out := Dedupe(evidences)
	if len(out) != 2 {
		t.Fatalf("expected 2 evidences, got %d", len(out))
	}

	kbEv := out[0]
	if kbEv.Source != model.SourceKB {
		t.Fatalf("first evidence should keep first-seen order, got %s", kbEv.Source)
	}
	if len(kbEv.Entities) != 2 {
		t.Errorf("entities = %v, want Q1 and Q2", kbEv.Entities)
	}
	if len(kbEv.RetrievedFor) != 2 {
		t.Errorf("retrieved for = %v, want Q1 and Q2", kbEv.RetrievedFor)
	}
	if len(kbEv.Disambiguations) != 1 {
		t.Errorf("disambiguations = %v", kbEv.Disambiguations)
	}
	if kbEv.TempInfo != span {
		t.Error("tempinfo should come from the first occurrence")
	}
	if out[1].Source != model.SourceText {
		t.Errorf("second evidence source = %s, want text", out[1].Source)
	}
}

func TestFilter(t *testing.T) {
	two := []model.KBItem{item("Q1", "a"), item("Q2", "b")}
	four := []model.KBItem{item("Q1", "a"), item("Q2", "b"), item("Q3", "c"), item("Q4", "d")}
	evidences := []model.Evidence{
		{Text: "single", Source: model.SourceKB, Entities: []model.KBItem{item("Q1", "a")}},
		{Text: "kb", Source: model.SourceKB, Entities: two},
		{Text: "text", Source: model.SourceText, Entities: two},
		{Text: "crowded", Source: model.SourceKB, Entities: four},
		{Text: "none", Source: model.SourceKB},
	}
	sources, err := model.NewSourceSet("kb")
	if err != nil {
		t.Fatal(err)
	}

	out := Filter(evidences, sources, 3)
	var texts []string
	for _, ev := range out {
		texts = append(texts, ev.Text)
	}
	if !reflect.DeepEqual(texts, []string{"kb", "none"}) {
		t.Errorf("kept %v, want [kb none]", texts)
	}

	// no entity bound
	out = Filter(evidences, sources, 0)
	if len(out) != 3 {
		t.Errorf("expected 3 evidences without a bound, got %d", len(out))
	}
}
