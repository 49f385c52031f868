// Package adapters turns fetched pages into evidences.
package adapters

import (
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/tempora/internal/model"
)

// Page identifies a fetched page and the KB item it was fetched for
type Page struct {
	Title  string
	URL    string
	Entity model.KBItem
}

// Anchor is a link from evidence text to another page
type Anchor struct {
	Text  string // Linked surface text
	Title string // Target page title
}

// PageEvidence is an evidence together with the page links found in its text
type PageEvidence struct {
	model.Evidence
	Anchors []Anchor
}

// Adapter defines the interface for page extractors
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter can handle the given URL
	CanHandle(url string) bool

	// Extract returns the evidences of the page
	Extract(doc *html.Node, page Page) []PageEvidence
}

// Registry manages page adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a new adapter registry
func NewRegistry() *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
	}

	// Register built-in adapters
	registry.Register(NewWikipediaAdapter())

	// Set generic adapter as fallback
	registry.generic = NewGenericAdapter()

	return registry
}

// Register registers a new adapter
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the best adapter for the given URL
func (r *Registry) FindAdapter(url string) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(url) {
			return adapter
		}
	}
	return r.generic
}

// BaseAdapter provides common functionality for adapters
type BaseAdapter struct{}

// ParseHTML parses HTML string into a node tree
func (b *BaseAdapter) ParseHTML(htmlContent string) (*html.Node, error) {
	return html.Parse(strings.NewReader(htmlContent))
}

// ExtractText returns the visible text of a node with whitespace collapsed.
// Reference markers, styles and scripts are skipped.
func (b *BaseAdapter) ExtractText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
			return
		case html.ElementNode:
			switch node.Data {
			case "sup", "style", "script":
				return
			case "br":
				buf.WriteString(" ")
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return CollapseSpace(buf.String())
}

// HasClass checks if a node has a specific CSS class
func (b *BaseAdapter) HasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}

	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, class := range strings.Fields(attr.Val) {
				if class == className {
					return true
				}
			}
		}
	}
	return false
}

// GetAttribute gets an attribute value from a node
func (b *BaseAdapter) GetAttribute(n *html.Node, attrKey string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// FindAll finds all nodes matching a predicate
func (b *BaseAdapter) FindAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

// FindFirst finds the first node matching a predicate
func (b *BaseAdapter) FindFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}

// isElement returns a predicate matching elements with the given tag
func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

// CollapseSpace replaces runs of whitespace with a single space
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// newPageEvidence builds an evidence for page: the title is prepended to the
// text and the page entity is the first entity and retrieved-for item
func newPageEvidence(page Page, source model.Source, text string) model.Evidence {
	return model.Evidence{
		Text:            page.Title + ", " + CollapseSpace(text),
		Source:          source,
		Entities:        []model.KBItem{page.Entity},
		Disambiguations: []model.Disambiguation{{Mention: page.Title, ID: page.Entity.ID}},
		RetrievedFor:    []model.KBItem{page.Entity},
	}
}

// MatchAnchors finds the anchors whose text occurs in text. Longer anchor
// texts are tried first and matches overlapping an earlier match are skipped.
func MatchAnchors(text string, anchors map[string]string) []Anchor {
	texts := make([]string, 0, len(anchors))
	for t := range anchors {
		texts = append(texts, t)
	}
	sort.Slice(texts, func(i, j int) bool {
		if len(texts[i]) != len(texts[j]) {
			return len(texts[i]) > len(texts[j])
		}
		return texts[i] < texts[j]
	})

	type region struct{ start, end int }
	var taken []region
	var out []Anchor

	for _, t := range texts {
		start := strings.Index(text, t)
		if start < 0 {
			continue
		}
		end := start + len(t)
		overlaps := false
		for _, r := range taken {
			if (start >= r.start && start <= r.end) || (end >= r.start && end <= r.end) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		taken = append(taken, region{start, end})
		out = append(out, Anchor{Text: t, Title: anchors[t]})
	}
	return out
}
