package datetag

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/resilience"
	"github.com/ppiankov/tempora/internal/worker"
)

const serviceName = "datetag"

// Client calls the external date-tagging service over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *worker.Limiter
	policy     resilience.Policy
	batch      resilience.Policy
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter shares a rate limiter with other clients
func WithLimiter(l *worker.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

type annotationRequest struct {
	String        string `json:"string"`
	ReferenceTime string `json:"reference_time"`
}

type multithreadRequest struct {
	StringRefers [][2]string `json:"string_refers"`
}

// NewClient creates a new date-tagging client
func NewClient(cfg model.DateTagConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    worker.NewLimiter(cfg.RatePerSecond, 0),
		policy:     resilience.Fixed(serviceName, "annotation", cfg.MaxAttempts, cfg.Backoff),
		batch:      resilience.Fixed(serviceName, "multithread", cfg.MaxAttempts, cfg.Backoff),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tag returns the raw TIMEX tags the service finds in text
func (c *Client) Tag(ctx context.Context, text, referenceTime string) ([]model.TimexTag, error) {
	body := annotationRequest{String: text, ReferenceTime: referenceTime}

	return resilience.DoVal(ctx, c.policy, func(ctx context.Context) ([]model.TimexTag, error) {
		var tags []model.TimexTag
		if err := c.post(ctx, "/annotation", body, &tags); err != nil {
			return nil, err
		}
		return tags, nil
	})
}

// TagBatch tags many texts in one call. The result lines up with reqs.
func (c *Client) TagBatch(ctx context.Context, reqs []model.TagRequest) ([][]model.TimexTag, error) {
	if len(reqs) == 0 {
		return [][]model.TimexTag{}, nil
	}

	body := multithreadRequest{StringRefers: make([][2]string, len(reqs))}
	for i, r := range reqs {
		body.StringRefers[i] = [2]string{r.Text, r.ReferenceTime}
	}

	return resilience.DoVal(ctx, c.batch, func(ctx context.Context) ([][]model.TimexTag, error) {
		var out [][]model.TimexTag
		if err := c.post(ctx, "/multithread", body, &out); err != nil {
			return nil, err
		}
		if len(out) != len(reqs) {
			return nil, resilience.Permanent(eris.Errorf("datetag returned %d results for %d texts", len(out), len(reqs)))
		}
		return out, nil
	})
}

// post sends one JSON request and decodes the JSON response into out
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
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
		return eris.Wrap(err, "execute request")
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
		return resilience.Permanent(eris.Wrap(err, "unmarshal response"))
	}
	return nil
}
