package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vgassen/lexharvest/internal/harvest"
)

func testFetchConfig(endpoint string) Config {
	return Config{
		URLTemplate:   endpoint + "/content/%s",
		UserAgent:     "lexharvest-test",
		Timeout:       5 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    0,
	}
}

func TestFetchReturnsDocument(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/content/32009L0001", r.URL.Path)
		w.Write([]byte("<html><body>directive text</body></html>"))
	}))
	defer srv.Close()

	f, err := NewCollyFetcher(testFetchConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	doc, err := f.Fetch(context.Background(), "32009L0001")
	require.NoError(t, err)
	assert.Equal(t, harvest.Identifier("32009L0001"), doc.Identifier)
	assert.Equal(t, http.StatusOK, doc.StatusCode)
	assert.Contains(t, string(doc.Body), "directive text")
	assert.Positive(t, doc.Duration)
	assert.Equal(t, int64(1), hits.Load())
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("recovered content"))
	}))
	defer srv.Close()

	f, err := NewCollyFetcher(testFetchConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	doc, err := f.Fetch(context.Background(), "32009L0002")
	require.NoError(t, err)
	assert.Equal(t, "recovered content", string(doc.Body))
	assert.Equal(t, int64(3), hits.Load())
}

func TestFetchExhaustedAttemptsIsUnavailable(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := NewCollyFetcher(testFetchConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "32009L0404")
	require.Error(t, err)
	assert.ErrorIs(t, err, harvest.ErrUnavailable)
	// The attempt budget is a hard ceiling.
	assert.Equal(t, int64(3), hits.Load())
}

func TestFetchCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "never reached cleanly", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, err := NewCollyFetcher(testFetchConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.Fetch(ctx, "32009L0003")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, harvest.ErrUnavailable)
}

func TestRetryPolicyStopsAfterFirstSuccess(t *testing.T) {
	p := newRetryPolicy(5, 0)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryPolicyReturnsLastError(t *testing.T) {
	p := newRetryPolicy(3, 0)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("still broken")
	})
	require.EqualError(t, err, "still broken")
	assert.Equal(t, 3, calls)
}

func TestConfigValidate(t *testing.T) {
	base := testFetchConfig("https://content.example.org")
	require.NoError(t, base.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no placeholder", func(c *Config) { c.URLTemplate = "https://content.example.org/fixed" }},
		{"two placeholders", func(c *Config) { c.URLTemplate = "https://%s.example.org/%s" }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero attempts", func(c *Config) { c.RetryAttempts = 0 }},
		{"negative delay", func(c *Config) { c.RetryDelay = -time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
