package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		BatchSize:        100,
		MinContentLength: 100,
		FetchConcurrency: 1,
		SkipPolicy:       SkipPermanent,
		FailurePolicy:    FailAbort,
		SourceLabel:      "EU richtlijnen",
	}
}

func TestConfigValidateAcceptsDefaults(t *testing.T) {
	t.Parallel()
	require.NoError(t, validConfig().Validate())
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"negative min length", func(c *Config) { c.MinContentLength = -1 }},
		{"zero concurrency", func(c *Config) { c.FetchConcurrency = 0 }},
		{"unknown skip policy", func(c *Config) { c.SkipPolicy = "sometimes" }},
		{"unknown failure policy", func(c *Config) { c.FailurePolicy = "shrug" }},
		{"missing source label", func(c *Config) { c.SourceLabel = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
