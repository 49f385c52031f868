package adapters

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/tempora/internal/model"
)

const (
	minSentenceLen = 20
	maxSentenceLen = 1000
)

// WikipediaAdapter extracts infobox rows, table rows and sentences from Wikipedia pages
type WikipediaAdapter struct {
	BaseAdapter
}

// NewWikipediaAdapter creates a new Wikipedia adapter
func NewWikipediaAdapter() *WikipediaAdapter {
	return &WikipediaAdapter{}
}

// Name returns the adapter name
func (a *WikipediaAdapter) Name() string {
	return "wikipedia"
}

// CanHandle checks if this is a Wikipedia article URL
func (a *WikipediaAdapter) CanHandle(rawURL string) bool {
	return strings.Contains(rawURL, "wikipedia.org") || strings.Contains(rawURL, "/wiki/")
}

// Extract returns info, table and text evidences of the page
func (a *WikipediaAdapter) Extract(doc *html.Node, page Page) []PageEvidence {
	content := a.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" &&
			(a.HasClass(n, "mw-parser-output") || a.GetAttribute(n, "id") == "mw-content-text")
	})
	if content == nil {
		content = doc
	}

	anchors := a.collectAnchors(content)

	var out []PageEvidence
	add := func(source model.Source, text string) {
		text = CollapseSpace(text)
		if text == "" {
			return
		}
		out = append(out, PageEvidence{
			Evidence: newPageEvidence(page, source, text),
			Anchors:  MatchAnchors(text, anchors),
		})
	}

	for _, row := range a.infoboxRows(content) {
		add(model.SourceInfo, row)
	}
	for _, row := range a.tableRows(content) {
		add(model.SourceTable, row)
	}
	for _, sentence := range a.sentences(content) {
		add(model.SourceText, sentence)
	}
	return out
}

// collectAnchors maps the text of article links to their target titles.
// Section links and non-article namespaces are skipped.
func (a *WikipediaAdapter) collectAnchors(content *html.Node) map[string]string {
	anchors := map[string]string{}
	for _, link := range a.FindAll(content, isElement("a")) {
		title, ok := ArticleTitle(a.GetAttribute(link, "href"))
		if !ok {
			continue
		}
		text := a.ExtractText(link)
		if text == "" {
			continue
		}
		if _, seen := anchors[text]; !seen {
			anchors[text] = title
		}
	}
	return anchors
}

// ArticleTitle returns the page title an article link points to
func ArticleTitle(href string) (string, bool) {
	var path string
	switch {
	case strings.HasPrefix(href, "/wiki/"):
		path = strings.TrimPrefix(href, "/wiki/")
	case strings.HasPrefix(href, "./"):
		path = strings.TrimPrefix(href, "./")
	default:
		return "", false
	}
	if path == "" || strings.Contains(path, "#") || strings.Contains(path, ":") {
		return "", false
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	return TitleFromPath(path), true
}

// TitleFromPath turns a URL path segment into a page title
func TitleFromPath(path string) string {
	return strings.ReplaceAll(path, "_", " ")
}

// PathFromTitle turns a page title into a URL path segment
func PathFromTitle(title string) string {
	return url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

// infoboxRows verbalises each labelled infobox row as "label, value"
func (a *WikipediaAdapter) infoboxRows(content *html.Node) []string {
	var rows []string
	for _, box := range a.FindAll(content, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "table" && a.HasClass(n, "infobox")
	}) {
		for _, tr := range a.FindAll(box, isElement("tr")) {
			label := a.FindFirst(tr, isElement("th"))
			value := a.FindFirst(tr, isElement("td"))
			if label == nil || value == nil {
				continue
			}
			l, v := a.ExtractText(label), a.ExtractText(value)
			if l == "" || v == "" {
				continue
			}
			rows = append(rows, l+", "+v)
		}
	}
	return rows
}

// tableRows verbalises the data rows of content tables as "header is cell" pairs
func (a *WikipediaAdapter) tableRows(content *html.Node) []string {
	var rows []string
	for _, table := range a.FindAll(content, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "table" && a.HasClass(n, "wikitable")
	}) {
		var headers []string
		for _, tr := range a.FindAll(table, isElement("tr")) {
			var cells []string
			isHeader := true
			for c := tr.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
					continue
				}
				if c.Data == "td" {
					isHeader = false
				}
				cells = append(cells, a.ExtractText(c))
			}
			if len(cells) == 0 {
				continue
			}
			if isHeader && headers == nil {
				headers = cells
				continue
			}
			if row := verbaliseRow(headers, cells); row != "" {
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func verbaliseRow(headers, cells []string) string {
	parts := make([]string, 0, len(cells))
	for i, cell := range cells {
		if cell == "" {
			continue
		}
		if i < len(headers) && headers[i] != "" {
			parts = append(parts, headers[i]+" is "+cell)
			continue
		}
		parts = append(parts, cell)
	}
	return strings.Join(parts, ", ")
}

// sentences returns the sentences of all paragraphs outside tables
func (a *WikipediaAdapter) sentences(content *html.Node) []string {
	var out []string
	for _, p := range a.FindAll(content, isElement("p")) {
		if insideTable(p) {
			continue
		}
		out = append(out, SplitSentences(a.ExtractText(p))...)
	}
	return out
}

func insideTable(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "table" {
			return true
		}
	}
	return false
}

// SplitSentences splits text at ". ", "! " and "? " when the next word
// starts with an upper-case letter or a digit. Very short and very long
// sentences are dropped.
func SplitSentences(text string) []string {
	text = CollapseSpace(text)
	var sentences []string
	keep := func(s string) {
		s = strings.TrimSpace(s)
		if len(s) >= minSentenceLen && len(s) <= maxSentenceLen {
			sentences = append(sentences, s)
		}
	}

	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
		default:
			continue
		}
		if i+2 >= len(text) || text[i+1] != ' ' {
			continue
		}
		next := text[i+2]
		if (next >= 'A' && next <= 'Z') || (next >= '0' && next <= '9') {
			keep(text[start : i+1])
			start = i + 2
		}
	}
	keep(text[start:])
	return sentences
}
