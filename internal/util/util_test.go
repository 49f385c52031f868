package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRobotsChecker_CanFetch(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			_, _ = fmt.Fprint(w, "User-agent: tempora\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rc := NewRobotsChecker("tempora/0.1 (+https://example.com)", time.Second, nil)

	allowed, delay, err := rc.CanFetch(context.Background(), server.URL+"/wiki/Barack_Obama")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2*time.Second, delay)

	assert.False(t, rc.IsAllowed(context.Background(), server.URL+"/private/page"))
	assert.Equal(t, int32(1), robotsHits.Load(), "robots.txt is fetched once per host")

	rc.Clear()
	rc.IsAllowed(context.Background(), server.URL+"/wiki/X")
	assert.Equal(t, int32(2), robotsHits.Load())
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	rc := NewRobotsChecker("tempora", time.Second, nil)
	assert.True(t, rc.IsAllowed(context.Background(), server.URL+"/anything"))
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	rc := NewRobotsChecker("tempora", 100*time.Millisecond, nil)
	allowed, _, err := rc.CanFetch(context.Background(), "http://127.0.0.1:1/page")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestNormalizeUserAgent(t *testing.T) {
	assert.Equal(t, "tempora", NormalizeUserAgent("tempora/0.1 (+https://github.com/ppiankov/tempora)"))
	assert.Equal(t, "", NormalizeUserAgent(""))
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "localhost")

	req, _ := http.NewRequest(http.MethodGet, "http://models.example.com/api/tags", nil)
	got, err := proxy(req)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "http://proxy.local:3128", got.String())

	req, _ = http.NewRequest(http.MethodGet, "http://localhost:11434/api/tags", nil)
	got, err = proxy(req)
	require.NoError(t, err)
	assert.Nil(t, got, "NO_PROXY hosts bypass the proxy")
}

func TestInitLogger(t *testing.T) {
	prev := zap.L()
	defer zap.ReplaceGlobals(prev)

	logger, err := InitLogger("debug", "json")
	require.NoError(t, err)
	assert.Same(t, logger, zap.L())
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = InitLogger("", "console")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = InitLogger("loud", "json")
	assert.Error(t, err)
}
