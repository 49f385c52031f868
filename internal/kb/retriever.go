package kb

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/tempora/internal/cache"
	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/resilience"
)

// Retriever fetches search spaces through the cache with bounded retries
type Retriever struct {
	client        Client
	cache         *cache.SearchSpaceCache // nil disables caching
	params        map[string]string
	neighborhoodP int
	searchPolicy  resilience.Policy
	lookupPolicy  resilience.Policy
	log           *zap.Logger
}

// NewRetriever creates a retriever. c may be nil.
func NewRetriever(client Client, c *cache.SearchSpaceCache, cfg model.KBConfig) *Retriever {
	return &Retriever{
		client:        client,
		cache:         c,
		params:        cfg.Params,
		neighborhoodP: cfg.NeighborhoodP,
		searchPolicy:  resilience.Fixed(serviceName, "search_space", cfg.SearchSpaceAttempts, cfg.SearchSpaceBackoff),
		lookupPolicy:  resilience.Fixed(serviceName, "neighborhood", cfg.LookupAttempts, cfg.LookupBackoff),
		log:           zap.L().With(zap.String("component", "kb")),
	}
}

// SearchSpace returns the search space for query, from the cache when
// present. Fresh results are added to the cache.
func (r *Retriever) SearchSpace(ctx context.Context, query string) (*SearchSpace, error) {
	if r.cache != nil {
		if raw, ok := r.cache.Get(query); ok {
			var ss SearchSpace
			if err := json.Unmarshal(raw, &ss); err == nil {
				r.log.Debug("search space cache hit", zap.String("query", query))
				return &ss, nil
			}
			r.log.Debug("unreadable cache entry, refetching", zap.String("query", query))
		}
	}

	r.log.Debug("search space cache miss", zap.String("query", query))
	ss, err := resilience.DoVal(ctx, r.searchPolicy, func(ctx context.Context) (*SearchSpace, error) {
		return r.client.SearchSpace(ctx, query, r.params)
	})
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		raw, err := json.Marshal(ss)
		if err != nil {
			return nil, eris.Wrap(err, "encode search space")
		}
		r.cache.Put(query, raw)
	}
	return ss, nil
}

// Neighborhood returns the facts around itemID
func (r *Retriever) Neighborhood(ctx context.Context, itemID string) ([]Fact, error) {
	return resilience.DoVal(ctx, r.lookupPolicy, func(ctx context.Context) ([]Fact, error) {
		return r.client.Neighborhood(ctx, itemID, r.neighborhoodP)
	})
}
