// Package hub implements the dataset sink against the dataset hub's
// HTTP append API.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/vgassen/lexharvest/internal/harvest"
)

// Config captures the hub connection parameters.
type Config struct {
	// Endpoint is the hub base URL.
	Endpoint string
	// Repo is the dataset repository, e.g. "vgassen/dutch-european-directives".
	Repo string
	// Split names the dataset split records are appended to.
	Split string
	// Token is the bearer token for authenticated pushes.
	Token string
	// Timeout bounds one delivery request.
	Timeout time.Duration
}

// Validate checks the hub configuration.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("sink.endpoint must be set")
	}
	if c.Repo == "" {
		return fmt.Errorf("sink.repo must be set")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("sink.timeout must be > 0")
	}
	return nil
}

// Client delivers batches with a single append request each. It never
// retries: a failed delivery is a run-level decision.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs a hub Client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}, nil
}

type appendRequest struct {
	Split   string           `json:"split,omitempty"`
	Records []harvest.Record `json:"records"`
}

// Deliver appends the batch to the configured dataset repository. The
// hub merges on identifier server-side, so re-delivery after a crash
// costs bandwidth, not correctness.
func (c *Client) Deliver(ctx context.Context, batch []harvest.Record) error {
	payload, err := json.Marshal(appendRequest{
		Split:   c.cfg.Split,
		Records: batch,
	})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/datasets/%s/append", c.cfg.Endpoint, url.PathEscape(c.cfg.Repo))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build append request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("append batch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("append batch: hub returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	c.logger.Debug("batch accepted by hub",
		zap.String("repo", c.cfg.Repo),
		zap.Int("records", len(batch)),
	)
	return nil
}
