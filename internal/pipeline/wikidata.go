package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/resilience"
	"github.com/ppiankov/tempora/internal/worker"
)

const (
	wikidataService = "wikidata"
	wikidataBatch   = 50 // wbgetentities accepts at most 50 ids or titles
	enwiki          = "enwiki"
)

// WikidataClient maps KB items to English Wikipedia titles and back
// through the wbgetentities API
type WikidataClient struct {
	apiURL     string
	userAgent  string
	httpClient *http.Client
	limiter    *worker.Limiter
	policy     resilience.Policy
}

// wikidataResponse is the part of a wbgetentities response we read
type wikidataResponse struct {
	Entities map[string]struct {
		ID        string  `json:"id"`
		Missing   *string `json:"missing,omitempty"`
		Sitelinks map[string]struct {
			Title string `json:"title"`
		} `json:"sitelinks"`
		Labels map[string]struct {
			Value string `json:"value"`
		} `json:"labels"`
	} `json:"entities"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

// NewWikidataClient creates a client for the API at apiURL
func NewWikidataClient(apiURL, userAgent string, timeout time.Duration, limiter *worker.Limiter, policy resilience.Policy) *WikidataClient {
	if limiter == nil {
		limiter = worker.NewLimiter(0, 0)
	}
	return &WikidataClient{
		apiURL:     apiURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		policy:     policy,
	}
}

// Titles returns the English Wikipedia title of each item that has one
func (c *WikidataClient) Titles(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, batch := range chunk(ids, wikidataBatch) {
		params := url.Values{}
		params.Set("ids", strings.Join(batch, "|"))
		params.Set("props", "sitelinks")
		params.Set("sitefilter", enwiki)

		resp, err := c.query(ctx, "titles", params)
		if err != nil {
			return nil, err
		}
		for id, entity := range resp.Entities {
			if link, ok := entity.Sitelinks[enwiki]; ok && link.Title != "" {
				out[id] = link.Title
			}
		}
	}
	return out, nil
}

// Items resolves English Wikipedia titles to KB items. Titles without an
// item are left out of the result.
func (c *WikidataClient) Items(ctx context.Context, titles []string) (map[string]model.KBItem, error) {
	out := make(map[string]model.KBItem, len(titles))
	for _, batch := range chunk(titles, wikidataBatch) {
		params := url.Values{}
		params.Set("sites", enwiki)
		params.Set("titles", strings.Join(batch, "|"))
		params.Set("props", "labels|sitelinks")
		params.Set("languages", "en")
		params.Set("sitefilter", enwiki)

		resp, err := c.query(ctx, "items", params)
		if err != nil {
			return nil, err
		}
		for id, entity := range resp.Entities {
			if entity.Missing != nil || !strings.HasPrefix(id, "Q") {
				continue
			}
			link, ok := entity.Sitelinks[enwiki]
			if !ok {
				continue
			}
			label := link.Title
			if l, ok := entity.Labels["en"]; ok && l.Value != "" {
				label = l.Value
			}
			out[normalizeTitle(link.Title)] = model.KBItem{ID: id, Label: label}
		}
	}
	return out, nil
}

// query runs one wbgetentities call with retries
func (c *WikidataClient) query(ctx context.Context, operation string, params url.Values) (*wikidataResponse, error) {
	params.Set("action", "wbgetentities")
	params.Set("format", "json")
	apiURL := c.apiURL + "?" + params.Encode()

	policy := c.policy
	policy.Operation = operation
	return resilience.DoVal(ctx, policy, func(ctx context.Context) (*wikidataResponse, error) {
		if err := c.limiter.Wait(ctx, wikidataService); err != nil {
			return nil, eris.Wrap(err, "rate limit")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, resilience.Permanent(eris.Wrap(err, "create request"))
		}
		// Wikimedia APIs require a User-Agent
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "wikidata request")
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, resilience.StatusError(wikidataService, resp.StatusCode)
		}

		var out wikidataResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, resilience.Permanent(eris.Wrap(err, "decode wikidata response"))
		}
		if out.Error != nil {
			return nil, resilience.Permanent(eris.Errorf("wikidata API error: %s - %s", out.Error.Code, out.Error.Info))
		}
		return &out, nil
	})
}

// normalizeTitle makes link targets and sitelink titles comparable
func normalizeTitle(title string) string {
	return strings.TrimSpace(strings.ReplaceAll(title, "_", " "))
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
