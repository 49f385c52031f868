package adapters

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/tempora/internal/model"
)

const obamaPage = `
<html><body>
<div id="mw-content-text"><div class="mw-parser-output">
<table class="infobox">
  <tr><th colspan="2">Barack Obama</th></tr>
  <tr><th>Born</th><td>August 4, 1961<br><a href="/wiki/Honolulu">Honolulu</a>, Hawaii</td></tr>
  <tr><th>Spouse</th><td><a href="/wiki/Michelle_Obama">Michelle Robinson</a> (m. 1992)</td></tr>
</table>
<p><b>Barack Hussein Obama II</b> is an American politician who served as the 44th
<a href="/wiki/President_of_the_United_States">president of the United States</a> from 2009 to 2017.<sup>[1]</sup>
He was a member of the <a href="/wiki/Democratic_Party_(United_States)">Democratic Party</a>. Short one.</p>
<h2>Electoral history</h2>
<table class="wikitable">
  <tr><th>Year</th><th>Office</th><th>Result</th></tr>
  <tr><td>2008</td><td>President</td><td>Won</td></tr>
  <tr><td>2012</td><td>President</td><td></td></tr>
</table>
<p>See <a href="/wiki/File:Obama.jpg">the portrait</a> and <a href="#cite_note-1">notes</a> in <a href="/wiki/Barack_Obama#Legacy">legacy</a> section of this article.</p>
</div></div>
</body></html>`

func extractObama(t *testing.T) []PageEvidence {
	t.Helper()
	a := NewWikipediaAdapter()
	doc, err := a.ParseHTML(obamaPage)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	page := Page{Title: "Barack Obama", URL: "https://en.wikipedia.org/wiki/Barack_Obama", Entity: model.KBItem{ID: "Q76", Label: "Barack Obama"}}
	return a.Extract(doc, page)
}

func bySource(evidences []PageEvidence, source model.Source) []PageEvidence {
	var out []PageEvidence
	for _, ev := range evidences {
		if ev.Source == source {
			out = append(out, ev)
		}
	}
	return out
}

func TestWikipediaAdapter_Infobox(t *testing.T) {
	info := bySource(extractObama(t), model.SourceInfo)
	if len(info) != 2 {
		t.Fatalf("expected 2 infobox evidences, got %d: %+v", len(info), info)
	}

	if info[0].Text != "Barack Obama, Born, August 4, 1961 Honolulu, Hawaii" {
		t.Errorf("unexpected infobox text %q", info[0].Text)
	}
	if !reflect.DeepEqual(info[0].Anchors, []Anchor{{Text: "Honolulu", Title: "Honolulu"}}) {
		t.Errorf("anchors = %v", info[0].Anchors)
	}
	if !reflect.DeepEqual(info[1].Anchors, []Anchor{{Text: "Michelle Robinson", Title: "Michelle Obama"}}) {
		t.Errorf("anchors = %v", info[1].Anchors)
	}

	ev := info[0].Evidence
	if len(ev.RetrievedFor) != 1 || ev.RetrievedFor[0].ID != "Q76" {
		t.Errorf("RetrievedFor = %v", ev.RetrievedFor)
	}
	if len(ev.Disambiguations) != 1 || ev.Disambiguations[0] != (model.Disambiguation{Mention: "Barack Obama", ID: "Q76"}) {
		t.Errorf("Disambiguations = %v", ev.Disambiguations)
	}
}

func TestWikipediaAdapter_Table(t *testing.T) {
	table := bySource(extractObama(t), model.SourceTable)
	if len(table) != 2 {
		t.Fatalf("expected 2 table evidences, got %d", len(table))
	}
	if table[0].Text != "Barack Obama, Year is 2008, Office is President, Result is Won" {
		t.Errorf("unexpected row text %q", table[0].Text)
	}
	// empty cells are left out
	if table[1].Text != "Barack Obama, Year is 2012, Office is President" {
		t.Errorf("unexpected row text %q", table[1].Text)
	}
}

func TestWikipediaAdapter_Text(t *testing.T) {
	text := bySource(extractObama(t), model.SourceText)
	if len(text) != 3 {
		t.Fatalf("expected 3 sentences, got %d: %+v", len(text), text)
	}

	first := text[0]
	if strings.Contains(first.Text, "[1]") {
		t.Error("reference markers should be skipped")
	}
	if !strings.HasPrefix(first.Text, "Barack Obama, Barack Hussein Obama II is an American politician") {
		t.Errorf("unexpected sentence %q", first.Text)
	}
	wantAnchors := []Anchor{{Text: "president of the United States", Title: "President of the United States"}}
	if !reflect.DeepEqual(first.Anchors, wantAnchors) {
		t.Errorf("anchors = %v, want %v", first.Anchors, wantAnchors)
	}

	if text[1].Text != "Barack Obama, He was a member of the Democratic Party." {
		t.Errorf("unexpected sentence %q", text[1].Text)
	}
	if len(text[1].Anchors) != 1 || text[1].Anchors[0].Title != "Democratic Party (United States)" {
		t.Errorf("anchors = %v", text[1].Anchors)
	}

	// file, citation and section links are not anchors
	if len(text[2].Anchors) != 0 {
		t.Errorf("expected no anchors, got %v", text[2].Anchors)
	}
}

func TestArticleTitle(t *testing.T) {
	tests := []struct {
		href  string
		want  string
		valid bool
	}{
		{"/wiki/Michelle_Obama", "Michelle Obama", true},
		{"./Honolulu", "Honolulu", true},
		{"/wiki/Caf%C3%A9", "Café", true},
		{"/wiki/File:Obama.jpg", "", false},
		{"/wiki/Barack_Obama#Legacy", "", false},
		{"#cite_note-1", "", false},
		{"https://example.com", "", false},
	}
	for _, tt := range tests {
		got, ok := ArticleTitle(tt.href)
		if ok != tt.valid || got != tt.want {
			t.Errorf("ArticleTitle(%q) = %q, %v; want %q, %v", tt.href, got, ok, tt.want, tt.valid)
		}
	}

	if got := PathFromTitle("Michelle Obama"); got != "Michelle_Obama" {
		t.Errorf("PathFromTitle = %q", got)
	}
}

func TestMatchAnchors_LongestFirstNoOverlap(t *testing.T) {
	anchors := map[string]string{
		"New York":      "New York (state)",
		"New York City": "New York City",
		"City":          "City",
		"Brooklyn":      "Brooklyn",
	}
	got := MatchAnchors("He moved to New York City and later Brooklyn.", anchors)
	want := []Anchor{
		{Text: "New York City", Title: "New York City"},
		{Text: "Brooklyn", Title: "Brooklyn"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MatchAnchors = %v, want %v", got, want)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Obama was born in 1961 in Honolulu. He served twice. Ok. In 2009 he took office, e.g. as president.")
	want := []string{
		"Obama was born in 1961 in Honolulu.",
		"In 2009 he took office, e.g. as president.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitSentences = %q, want %q", got, want)
	}
}

func TestRegistry_FindAdapter(t *testing.T) {
	r := NewRegistry()
	if name := r.FindAdapter("https://en.wikipedia.org/wiki/Barack_Obama").Name(); name != "wikipedia" {
		t.Errorf("expected wikipedia adapter, got %s", name)
	}
	if name := r.FindAdapter("http://127.0.0.1:8080/wiki/Barack_Obama").Name(); name != "wikipedia" {
		t.Errorf("expected wikipedia adapter for a mirror, got %s", name)
	}
	if name := r.FindAdapter("https://example.com/about").Name(); name != "generic" {
		t.Errorf("expected generic adapter, got %s", name)
	}
}

func TestGenericAdapter_Extract(t *testing.T) {
	a := NewGenericAdapter()
	doc, err := a.ParseHTML(`<html><body><p>The company was founded in 1998 by two students. Tiny.</p></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	out := a.Extract(doc, Page{Title: "Example", Entity: model.KBItem{ID: "Q1"}})
	if len(out) != 1 {
		t.Fatalf("expected 1 evidence, got %d", len(out))
	}
	if out[0].Text != "Example, The company was founded in 1998 by two students." {
		t.Errorf("unexpected text %q", out[0].Text)
	}
	if out[0].Source != model.SourceText {
		t.Errorf("source = %s", out[0].Source)
	}
}
