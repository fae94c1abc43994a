// Package fetch retrieves per-identifier document content with bounded
// retries, using the Colly collector for transport.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/vgassen/lexharvest/internal/harvest"
)

// Config controls the content fetcher.
type Config struct {
	// URLTemplate expands the identifier into the canonical content
	// URL; it must contain exactly one %s verb.
	URLTemplate   string
	UserAgent     string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Validate checks the fetcher configuration.
func (c Config) Validate() error {
	if strings.Count(c.URLTemplate, "%s") != 1 {
		return fmt.Errorf("content.url_template must contain exactly one %%s")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("harvest.fetch_timeout must be > 0")
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("harvest.retry_attempts must be > 0")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("harvest.retry_delay must be >= 0")
	}
	return nil
}

// CollyFetcher implements harvest.Fetcher using a Colly collector.
type CollyFetcher struct {
	base   *colly.Collector
	cfg    Config
	retry  retryPolicy
	logger *zap.Logger
}

// NewCollyFetcher constructs a configured Colly-based fetcher.
func NewCollyFetcher(cfg Config, logger *zap.Logger) (*CollyFetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []colly.CollectorOption{
		colly.Async(false),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	base := colly.NewCollector(opts...)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)

	return &CollyFetcher{
		base:   base,
		cfg:    cfg,
		retry:  newRetryPolicy(cfg.RetryAttempts, cfg.RetryDelay),
		logger: logger,
	}, nil
}

// Fetch retrieves the document for id. Exhausted attempts yield a soft
// failure wrapping harvest.ErrUnavailable.
func (f *CollyFetcher) Fetch(ctx context.Context, id harvest.Identifier) (harvest.Document, error) {
	rawURL := fmt.Sprintf(f.cfg.URLTemplate, id)

	var doc harvest.Document
	err := f.retry.Do(ctx, func(ctx context.Context) error {
		var attemptErr error
		doc, attemptErr = f.attempt(ctx, id, rawURL)
		if attemptErr != nil {
			f.logger.Debug("content fetch attempt failed",
				zap.String("identifier", string(id)),
				zap.String("url", rawURL),
				zap.Error(attemptErr),
			)
		}
		return attemptErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return harvest.Document{}, ctx.Err()
		}
		return harvest.Document{}, fmt.Errorf("%w: %s: %v", harvest.ErrUnavailable, id, err)
	}
	f.logger.Debug("content fetched",
		zap.String("identifier", string(id)),
		zap.Int("bytes", len(doc.Body)),
		zap.Duration("duration", doc.Duration),
	)
	return doc, nil
}

func (f *CollyFetcher) attempt(ctx context.Context, id harvest.Identifier, rawURL string) (harvest.Document, error) {
	collector := f.base.Clone()
	resultCh := make(chan attemptResult, 1)
	var once sync.Once
	send := func(res attemptResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	started := time.Now()
	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode != http.StatusOK {
			send(attemptResult{err: fmt.Errorf("unexpected status %d", r.StatusCode)})
			return
		}
		send(attemptResult{doc: harvest.Document{
			Identifier: id,
			URL:        rawURL,
			StatusCode: r.StatusCode,
			Body:       append([]byte{}, r.Body...),
			Duration:   time.Since(started),
		}})
	})
	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		if r != nil && r.StatusCode != 0 {
			err = fmt.Errorf("status %d: %w", r.StatusCode, err)
		}
		send(attemptResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return harvest.Document{}, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return harvest.Document{}, err
		}
		return res.doc, res.err
	default:
		return harvest.Document{}, errors.New("fetch produced no result")
	}
}

type attemptResult struct {
	doc harvest.Document
	err error
}
