package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/tempora/internal/resilience"
)

func newTestWikidata(url string) *WikidataClient {
	return NewWikidataClient(url, "test-agent", 5*time.Second, nil,
		resilience.Policy{Service: wikidataService, MaxAttempts: 2})
}

func TestWikidataClient_Titles(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "wbgetentities", q.Get("action"))
		assert.Equal(t, "enwiki", q.Get("sitefilter"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		var parts []string
		for _, id := range strings.Split(q.Get("ids"), "|") {
			if id == "Q404" {
				parts = append(parts, `"Q404":{"id":"Q404","sitelinks":{}}`)
				continue
			}
			parts = append(parts, fmt.Sprintf(`%q:{"id":%q,"sitelinks":{"enwiki":{"site":"enwiki","title":"Page %s"}}}`, id, id, id))
		}
		_, _ = fmt.Fprintf(w, `{"entities":{%s}}`, strings.Join(parts, ","))
	}))
	defer server.Close()

	ids := []string{"Q404"}
	for i := 1; i <= 60; i++ {
		ids = append(ids, fmt.Sprintf("Q%d", i))
	}

	titles, err := newTestWikidata(server.URL).Titles(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, titles, 60)
	assert.Equal(t, "Page Q7", titles["Q7"])
	assert.NotContains(t, titles, "Q404")
	assert.Equal(t, int32(2), requests.Load(), "ids are sent in batches of 50")
}

func TestWikidataClient_Items(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "enwiki", q.Get("sites"))
		assert.Equal(t, "President_of_the_United_States|Nowhere", q.Get("titles"))
		_, _ = fmt.Fprint(w, `{"entities":{
			"Q11696":{"id":"Q11696","labels":{"en":{"language":"en","value":"President of the United States"}},
				"sitelinks":{"enwiki":{"site":"enwiki","title":"President of the United States"}}},
			"-1":{"site":"enwiki","title":"Nowhere","missing":""}}}`)
	}))
	defer server.Close()

	items, err := newTestWikidata(server.URL).Items(context.Background(), []string{"President_of_the_United_States", "Nowhere"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Q11696", items["President of the United States"].ID)
}

func TestWikidataClient_Errors(t *testing.T) {
	var attempts atomic.Int32
	apiError := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = fmt.Fprint(w, `{"error":{"code":"no-such-entity","info":"Could not find an entity"}}`)
	}))
	defer apiError.Close()

	_, err := newTestWikidata(apiError.URL).Titles(context.Background(), []string{"Q1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-entity")
	assert.Equal(t, int32(1), attempts.Load(), "API errors are not retried")

	unavailable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer unavailable.Close()

	_, err = newTestWikidata(unavailable.URL).Titles(context.Background(), []string{"Q1"})
	assert.True(t, errors.Is(err, resilience.ErrServiceUnavailable))
}

func TestChunk(t *testing.T) {
	assert.Nil(t, chunk(nil, 50))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, chunk([]string{"a", "b", "c"}, 2))
}
