package adapters

import (
	"golang.org/x/net/html"

	"github.com/ppiankov/tempora/internal/model"
)

// GenericAdapter is the fallback adapter for unknown pages. It only
// produces text evidences.
type GenericAdapter struct {
	BaseAdapter
}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// CanHandle always returns true (fallback adapter)
func (a *GenericAdapter) CanHandle(url string) bool {
	return true
}

// Extract returns one text evidence per paragraph sentence
func (a *GenericAdapter) Extract(doc *html.Node, page Page) []PageEvidence {
	var out []PageEvidence
	for _, p := range a.FindAll(doc, isElement("p")) {
		for _, sentence := range SplitSentences(a.ExtractText(p)) {
			out = append(out, PageEvidence{Evidence: newPageEvidence(page, model.SourceText, sentence)})
		}
	}
	return out
}
