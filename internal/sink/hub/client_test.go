package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vgassen/lexharvest/internal/harvest"
)

func testHubConfig(endpoint string) Config {
	return Config{
		Endpoint: endpoint,
		Repo:     "vgassen/dutch-european-directives",
		Split:    "train",
		Token:    "hf_testtoken",
		Timeout:  5 * time.Second,
	}
}

func sampleBatch() []harvest.Record {
	return []harvest.Record{
		{
			Identifier: "32009L0028",
			URL:        "https://eur-lex.europa.eu/legal-content/NL/TXT/HTML/?uri=CELEX:32009L0028",
			Content:    "richtlijn ter bevordering van het gebruik van energie uit hernieuwbare bronnen",
			Source:     "EU richtlijnen",
		},
	}
}

func TestDeliverPostsBatch(t *testing.T) {
	var got struct {
		path    string
		auth    string
		content string
		body    appendRequest
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.EscapedPath()
		got.auth = r.Header.Get("Authorization")
		got.content = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got.body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := New(testHubConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	err = client.Deliver(context.Background(), sampleBatch())
	require.NoError(t, err)

	assert.Equal(t, "/api/datasets/vgassen%2Fdutch-european-directives/append", got.path)
	assert.Equal(t, "Bearer hf_testtoken", got.auth)
	assert.Equal(t, "application/json", got.content)
	assert.Equal(t, "train", got.body.Split)
	require.Len(t, got.body.Records, 1)
	assert.Equal(t, harvest.Identifier("32009L0028"), got.body.Records[0].Identifier)
}

func TestDeliverOmitsAuthWithoutToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	cfg := testHubConfig(srv.URL)
	cfg.Token = ""
	client, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, client.Deliver(context.Background(), sampleBatch()))
	assert.Empty(t, auth)
}

func TestDeliverRejectedBatchSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "split quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := New(testHubConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	err = client.Deliver(context.Background(), sampleBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "split quota exceeded")
}

func TestDeliverConnectionErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client, err := New(testHubConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	err = client.Deliver(context.Background(), sampleBatch())
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	base := testHubConfig("https://hub.example.org")
	require.NoError(t, base.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }},
		{"missing repo", func(c *Config) { c.Repo = "" }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
