package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/tempora/internal/cache"
	"github.com/ppiankov/tempora/internal/resilience"
	"github.com/ppiankov/tempora/internal/util"
	"github.com/ppiankov/tempora/internal/worker"
)

const wikipediaService = "wikipedia"

// ErrDisallowed is returned for URLs excluded by robots.txt
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Fetcher fetches HTML pages with robots.txt checks, per-host rate limits,
// bounded retries and an in-memory page cache
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker // nil skips robots.txt checks
	limiter    *worker.Limiter
	pages      *cache.MemoryCache // nil disables page caching
	policy     resilience.Policy
	log        *zap.Logger
	delayed    sync.Map // Hosts whose robots.txt crawl delay was applied
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithFetchHTTPClient replaces the default HTTP client
func WithFetchHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) { f.httpClient = hc }
}

// WithRobots enables robots.txt checks
func WithRobots(rc *util.RobotsChecker) FetcherOption {
	return func(f *Fetcher) { f.robots = rc }
}

// WithFetchLimiter shares a rate limiter with other clients
func WithFetchLimiter(l *worker.Limiter) FetcherOption {
	return func(f *Fetcher) { f.limiter = l }
}

// WithPageCache keeps fetched pages in memory
func WithPageCache(c *cache.MemoryCache) FetcherOption {
	return func(f *Fetcher) { f.pages = c }
}

// WithRetry replaces the retry policy of FetchWithRetry
func WithRetry(p resilience.Policy) FetcherOption {
	return func(f *Fetcher) { f.policy = p }
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, opts ...FetcherOption) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return eris.New("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		limiter:   worker.NewLimiter(0, 0),
		policy:    resilience.Fixed(wikipediaService, "fetch", 3, time.Second),
		log:       zap.L().With(zap.String("component", "fetcher")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchResult contains the fetched HTML and metadata
type FetchResult struct {
	HTML        string
	FinalURL    string
	StatusCode  int
	ContentType string
}

// Fetch makes one attempt at rawURL. Statuses worth retrying come back as
// plain errors, everything else as permanent ones.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		if !allowed {
			return nil, resilience.Permanent(fmt.Errorf("%w: %s", ErrDisallowed, rawURL))
		}
		if delay > 0 {
			f.applyCrawlDelay(rawURL, delay)
		}
	}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, eris.Wrap(err, "rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, resilience.Permanent(eris.Wrap(err, "create request"))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resilience.StatusError(wikipediaService, resp.StatusCode)
	}

	// Read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}

	return &FetchResult{
		HTML:        string(body),
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// applyCrawlDelay slows the limiter of the URL's host once
func (f *Fetcher) applyCrawlDelay(rawURL string, delay time.Duration) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	if _, done := f.delayed.LoadOrStore(parsed.Host, struct{}{}); done {
		return
	}
	f.limiter.SetRate(rawURL, 1/delay.Seconds(), 1)
	f.log.Debug("applied crawl delay", zap.String("host", parsed.Host), zap.Duration("delay", delay))
}

// FetchWithRetry returns the cached page or fetches it with bounded retries
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.CacheKey(rawURL)
	if f.pages != nil {
		if html, ok := f.pages.Get(key); ok {
			f.log.Debug("page cache hit", zap.String("url", rawURL))
			return &FetchResult{HTML: string(html), FinalURL: rawURL, StatusCode: http.StatusOK}, nil
		}
	}

	result, err := resilience.DoVal(ctx, f.policy, func(ctx context.Context) (*FetchResult, error) {
		return f.Fetch(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}

	if f.pages != nil {
		_ = f.pages.Set(key, []byte(result.HTML), 0)
	}
	return result, nil
}
