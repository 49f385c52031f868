package kb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/resilience"
)

func TestItemFilter_Valid(t *testing.T) {
	client := &fakeClient{
		freqs: map[string][2]int{
			"Q76":  {1200, 800},
			"Q5":   {900_000, 100_000},
			"Q30":  {10, 10},
			"Q999": {999_999, 0},
		},
		types: map[string][]model.KBItem{
			"Q30": {{ID: CountryType, Label: "country"}},
			"Q76": {{ID: "Q5", Label: "human"}},
		},
	}
	f := NewItemFilter(client, testConfig())
	ctx := context.Background()

	tests := []struct {
		item string
		want bool
	}{
		{"Q76", true},
		{"Q5", false},  // reaches the threshold
		{"Q30", false}, // country
		{"Q999", true}, // just below the threshold
		{"P39", false}, // predicate
	}
	for _, tt := range tests {
		t.Run(tt.item, func(t *testing.T) {
			got, err := f.Valid(ctx, tt.item)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// memoized
	before := client.count("types")
	_, err := f.Valid(ctx, "Q76")
	require.NoError(t, err)
	assert.Equal(t, before, client.count("types"))
}

func TestItemFilter_CountryNeedsEntity(t *testing.T) {
	client := &fakeClient{}
	country, err := NewItemFilter(client, testConfig()).IsCountry(context.Background(), "2001-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.False(t, country)
	assert.Equal(t, 0, client.count("types"))
}

func TestItemFilter_RetriesLookups(t *testing.T) {
	client := &fakeClient{failFirst: 2, freqs: map[string][2]int{"Q76": {1, 1}}}
	valid, err := NewItemFilter(client, testConfig()).Valid(context.Background(), "Q76")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, 3, client.count("types"))
	assert.Equal(t, 3, client.count("frequency"))
}

func TestItemFilter_Unavailable(t *testing.T) {
	client := &fakeClient{failFirst: 100}
	_, err := NewItemFilter(client, testConfig()).Valid(context.Background(), "Q76")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrServiceUnavailable))
}

func TestIsEntity(t *testing.T) {
	assert.True(t, IsEntity("Q76"))
	assert.False(t, IsEntity("P39"))
	assert.False(t, IsEntity("Q76a"))
	assert.True(t, IsPredicate("P580"))
	assert.False(t, IsPredicate("Q5"))
}
