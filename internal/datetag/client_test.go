package datetag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/resilience"
)

func testConfig(url string) model.DateTagConfig {
	return model.DateTagConfig{
		BaseURL:     url,
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
	}
}

func TestClient_Tag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/annotation", r.URL.Path)

		var req annotationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "who won in 2010", req.String)
		assert.Equal(t, "2023-01-01", req.ReferenceTime)

		_, _ = w.Write([]byte(`[{"text": "2010", "type": "DATE", "value": "2010", "span": [11, 15]}]`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	tags, err := client.Tag(context.Background(), "who won in 2010", "2023-01-01")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "2010", tags[0].Value.Point)
	assert.Equal(t, model.TextSpan{Start: 11, End: 15}, tags[0].Span)
}

func TestClient_TagBatchPreservesPositions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/multithread", r.URL.Path)

		var req multithreadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.StringRefers, 2)
		assert.Equal(t, [2]string{"no dates here", "2020-05-05"}, req.StringRefers[0])

		_, _ = w.Write([]byte(`[[], [{"text": "1990s", "type": "DATE", "value": "199X", "span": [4, 9]}]]`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	out, err := client.TagBatch(context.Background(), []model.TagRequest{
		{Text: "no dates here", ReferenceTime: "2020-05-05"},
		{Text: "the 1990s", ReferenceTime: "2020-05-05"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Empty(t, out[0])
	require.Len(t, out[1], 1)
	assert.Equal(t, "199X", out[1][0].Value.Point)
}

func TestClient_TagBatchEmpty(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:1"))
	out, err := client.TagBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestClient_RetriesThenUnavailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Tag(context.Background(), "in 2010", "2023-01-01")
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrServiceUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_BadRequestNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Tag(context.Background(), "in 2010", "2023-01-01")
	require.Error(t, err)
	assert.NotErrorIs(t, err, resilience.ErrServiceUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_BatchLengthMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[]]`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.TagBatch(context.Background(), []model.TagRequest{{Text: "a"}, {Text: "b"}})
	require.Error(t, err)
	assert.True(t, resilience.IsPermanent(err))
}
