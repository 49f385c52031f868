package kb

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/resilience"
)

// CountryType is the KB type of countries
const CountryType = "Q6256"

// DefaultFrequencyThreshold marks items frequent enough to be misleading in facts
const DefaultFrequencyThreshold = 1_000_000

// ItemFilter decides whether an item is worth expanding. Predicates,
// countries and very frequent items are not. Verdicts are memoized.
type ItemFilter struct {
	client    Client
	threshold int
	freq      resilience.Policy
	types     resilience.Policy
	log       *zap.Logger

	mu       sync.Mutex
	verdicts map[string]bool
}

// NewItemFilter creates a filter using cfg's frequency threshold and lookup retries
func NewItemFilter(client Client, cfg model.KBConfig) *ItemFilter {
	threshold := cfg.FrequencyThreshold
	if threshold <= 0 {
		threshold = DefaultFrequencyThreshold
	}
	return &ItemFilter{
		client:    client,
		threshold: threshold,
		freq:      resilience.Fixed(serviceName, "frequency", cfg.LookupAttempts, cfg.LookupBackoff),
		types:     resilience.Fixed(serviceName, "types", cfg.LookupAttempts, cfg.LookupBackoff),
		log:       zap.L().With(zap.String("component", "kb")),
		verdicts:  map[string]bool{},
	}
}

// Valid reports whether itemID may be expanded
func (f *ItemFilter) Valid(ctx context.Context, itemID string) (bool, error) {
	if strings.HasPrefix(itemID, "P") {
		return false, nil
	}

	f.mu.Lock()
	v, ok := f.verdicts[itemID]
	f.mu.Unlock()
	if ok {
		return v, nil
	}

	country, err := f.IsCountry(ctx, itemID)
	if err != nil {
		return false, err
	}
	valid := !country
	if valid {
		frequent, err := f.IsFrequent(ctx, itemID)
		if err != nil {
			return false, err
		}
		valid = !frequent
	}

	f.mu.Lock()
	f.verdicts[itemID] = valid
	f.mu.Unlock()
	if !valid {
		f.log.Debug("item filtered", zap.String("item", itemID), zap.Bool("country", country))
	}
	return valid, nil
}

// IsCountry reports whether itemID has the country type. Only entities are checked.
func (f *ItemFilter) IsCountry(ctx context.Context, itemID string) (bool, error) {
	if !strings.HasPrefix(itemID, "Q") {
		return false, nil
	}
	types, err := resilience.DoVal(ctx, f.types, func(ctx context.Context) ([]model.KBItem, error) {
		return f.client.Types(ctx, itemID)
	})
	if err != nil {
		return false, err
	}
	for _, t := range types {
		if t.ID == CountryType {
			return true, nil
		}
	}
	return false, nil
}

// IsFrequent reports whether the subject and object frequency of itemID
// together reach the threshold
func (f *ItemFilter) IsFrequent(ctx context.Context, itemID string) (bool, error) {
	total, err := resilience.DoVal(ctx, f.freq, func(ctx context.Context) (int, error) {
		asSubject, asObject, err := f.client.Frequency(ctx, itemID)
		return asSubject + asObject, err
	})
	if err != nil {
		return false, err
	}
	return total >= f.threshold, nil
}
