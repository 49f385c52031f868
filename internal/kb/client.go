// Package kb talks to the knowledge-base service that provides search
// spaces, item neighborhoods, item frequencies and item types.
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/resilience"
	"github.com/ppiankov/tempora/internal/worker"
)

const serviceName = "kb"

var (
	entityPattern    = regexp.MustCompile(`^Q[0-9]+$`)
	predicatePattern = regexp.MustCompile(`^P[0-9]+$`)
)

// IsEntity reports whether id names a KB entity (Q-id)
func IsEntity(id string) bool {
	return entityPattern.MatchString(id)
}

// IsPredicate reports whether id names a KB predicate (P-id)
func IsPredicate(id string) bool {
	return predicatePattern.MatchString(id)
}

// Fact is one KB fact: subject, predicate, object and qualifier items in order
type Fact []model.KBItem

// ItemMatch is an item the search space matched to a question mention
type ItemMatch struct {
	Item         model.KBItem `json:"item"`
	QuestionWord string       `json:"question_word,omitempty"`
	Score        float64      `json:"score,omitempty"`
}

// SearchSpace is the KB result for one query
type SearchSpace struct {
	Matches []ItemMatch `json:"kb_item_tuple"`
	Facts   []Fact      `json:"search_space"`
}

// QuestionEntities returns matched entities; predicates and empty ids are dropped
func (s *SearchSpace) QuestionEntities() []model.KBItem {
	var out []model.KBItem
	for _, m := range s.Matches {
		if IsEntity(m.Item.ID) {
			out = append(out, m.Item)
		}
	}
	return out
}

// MatchedIDs returns the ids of all matched items
func (s *SearchSpace) MatchedIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Matches))
	for _, m := range s.Matches {
		if m.Item.ID != "" {
			ids[m.Item.ID] = struct{}{}
		}
	}
	return ids
}

// Client is the KB service surface used by retrieval
type Client interface {
	SearchSpace(ctx context.Context, query string, params map[string]string) (*SearchSpace, error)
	Neighborhood(ctx context.Context, itemID string, p int) ([]Fact, error)
	Frequency(ctx context.Context, itemID string) (int, int, error)
	Types(ctx context.Context, itemID string) ([]model.KBItem, error)
}

// HTTPClient implements Client with JSON over HTTP. It makes single
// attempts; retry policies belong to the callers.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *worker.Limiter
}

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithLimiter shares a rate limiter with other clients
func WithLimiter(l *worker.Limiter) Option {
	return func(c *HTTPClient) { c.limiter = l }
}

// NewHTTPClient creates a KB client for cfg.BaseURL
func NewHTTPClient(cfg model.KBConfig, opts ...Option) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &HTTPClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    worker.NewLimiter(cfg.RatePerSecond, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchSpaceRequest struct {
	Question      string            `json:"question"`
	Parameters    map[string]string `json:"parameters,omitempty"`
	IncludeLabels bool              `json:"include_labels"`
	IncludeType   bool              `json:"include_type"`
}

type itemRequest struct {
	Item          string `json:"item"`
	P             int    `json:"p,omitempty"`
	IncludeLabels bool   `json:"include_labels,omitempty"`
}

// SearchSpace retrieves question items and facts for query
func (c *HTTPClient) SearchSpace(ctx context.Context, query string, params map[string]string) (*SearchSpace, error) {
	var out SearchSpace
	req := searchSpaceRequest{Question: query, Parameters: params, IncludeLabels: true, IncludeType: true}
	if err := c.post(ctx, "/search_space", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Neighborhood retrieves the facts around one item
func (c *HTTPClient) Neighborhood(ctx context.Context, itemID string, p int) ([]Fact, error) {
	var out []Fact
	if err := c.post(ctx, "/neighborhood", itemRequest{Item: itemID, P: p, IncludeLabels: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Frequency returns how often the item occurs as subject and as object
func (c *HTTPClient) Frequency(ctx context.Context, itemID string) (int, int, error) {
	var out []int
	if err := c.post(ctx, "/frequency", itemRequest{Item: itemID}, &out); err != nil {
		return 0, 0, err
	}
	if len(out) != 2 {
		return 0, 0, resilience.Permanent(eris.Errorf("kb: frequency for %s has %d values", itemID, len(out)))
	}
	return out[0], out[1], nil
}

// Types returns the type items of itemID. Entries that are not items
// (the service answers ["None"] for untyped items) are skipped.
func (c *HTTPClient) Types(ctx context.Context, itemID string) ([]model.KBItem, error) {
	var raw []json.RawMessage
	if err := c.post(ctx, "/types", itemRequest{Item: itemID}, &raw); err != nil {
		return nil, err
	}
	var types []model.KBItem
	for _, r := range raw {
		var item model.KBItem
		if err := json.Unmarshal(r, &item); err != nil || item.ID == "" {
			continue
		}
		types = append(types, item)
	}
	return types, nil
}

// post sends one JSON request and decodes the JSON response into out
func (c *HTTPClient) post(ctx context.Context, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx, serviceName); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return resilience.Permanent(eris.Wrap(err, "marshal request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return resilience.Permanent(eris.Wrap(err, "create request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrapf(err, "kb %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return resilience.StatusError(serviceName, resp.StatusCode)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return resilience.Permanent(eris.Wrapf(err, "kb %s: unmarshal response", path))
	}
	return nil
}
