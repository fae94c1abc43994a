package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
sink:
  endpoint: https://hub.example.org
  repo: vgassen/dutch-european-directives
`))
	require.NoError(t, err)

	assert.Equal(t, "https://zoekservice.overheid.nl/sru/Search", cfg.SRU.Endpoint)
	assert.Equal(t, 100, cfg.SRU.PageSize)
	assert.Equal(t, time.Second, cfg.SRU.RequestDelay)
	assert.Equal(t, 100, cfg.Harvest.BatchSize)
	assert.Equal(t, 100, cfg.Harvest.MinContentLength)
	assert.Equal(t, 3, cfg.Harvest.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.Harvest.RetryDelay)
	assert.Equal(t, "permanent", cfg.Harvest.SkipPolicy)
	assert.Equal(t, "abort", cfg.Harvest.FailurePolicy)
	assert.Equal(t, "file", cfg.Checkpoint.Backend)
	assert.Equal(t, "data/processed_celex.json", cfg.Checkpoint.Path)
	assert.Equal(t, "train", cfg.Sink.Split)
	assert.Equal(t, "noop", cfg.Archive.Backend)
	assert.Equal(t, "noop", cfg.Notify.Backend)
	assert.Contains(t, cfg.Content.URLTemplate, "%s")
}

func TestLoadOverridesFromFile(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
sru:
  page_size: 50
  connection: BWB
harvest:
  batch_size: 25
  fetch_concurrency: 4
  skip_policy: retryable
checkpoint:
  backend: memory
sink:
  backend: memory
server:
  addr: ":8090"
`))
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.SRU.PageSize)
	assert.Equal(t, "BWB", cfg.SRU.Connection)
	assert.Equal(t, 25, cfg.Harvest.BatchSize)
	assert.Equal(t, 4, cfg.Harvest.FetchConcurrency)
	assert.Equal(t, "retryable", cfg.Harvest.SkipPolicy)
	assert.Equal(t, "memory", cfg.Checkpoint.Backend)
	assert.Equal(t, "memory", cfg.Sink.Backend)
	assert.Equal(t, ":8090", cfg.Server.Addr)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	valid := func(t *testing.T) Config {
		t.Helper()
		cfg, err := Load(writeConfigFile(t, `
checkpoint:
  backend: memory
sink:
  backend: memory
`))
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing sru endpoint", func(c *Config) { c.SRU.Endpoint = "" }},
		{"zero page size", func(c *Config) { c.SRU.PageSize = 0 }},
		{"missing identifier path", func(c *Config) { c.SRU.IdentifierPath = "" }},
		{"zero batch size", func(c *Config) { c.Harvest.BatchSize = 0 }},
		{"zero concurrency", func(c *Config) { c.Harvest.FetchConcurrency = 0 }},
		{"unknown checkpoint backend", func(c *Config) { c.Checkpoint.Backend = "redis" }},
		{"file checkpoint without path", func(c *Config) {
			c.Checkpoint.Backend = "file"
			c.Checkpoint.Path = ""
		}},
		{"postgres checkpoint without dsn", func(c *Config) { c.Checkpoint.Backend = "postgres" }},
		{"hub sink without repo", func(c *Config) {
			c.Sink.Backend = "hub"
			c.Sink.Endpoint = "https://hub.example.org"
			c.Sink.Repo = ""
		}},
		{"unknown sink backend", func(c *Config) { c.Sink.Backend = "kafka" }},
		{"local archive without dir", func(c *Config) { c.Archive.Backend = "local" }},
		{"gcs archive without bucket", func(c *Config) { c.Archive.Backend = "gcs" }},
		{"unknown archive backend", func(c *Config) { c.Archive.Backend = "s3" }},
		{"pubsub notify without topic", func(c *Config) {
			c.Notify.Backend = "pubsub"
			c.Notify.ProjectID = "p"
			c.Notify.Topic = ""
		}},
		{"unknown notify backend", func(c *Config) { c.Notify.Backend = "sns" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid(t)
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
