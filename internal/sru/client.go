// Package sru implements the paginated catalog source using the SRU
// searchRetrieve protocol.
package sru

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"github.com/vgassen/lexharvest/internal/harvest"
)

// Config captures the SRU endpoint parameters and paths.
type Config struct {
	Endpoint   string
	Connection string
	Version    string
	Query      string
	HTTPAccept string
	UserAgent  string
	PageSize   int
	// RecordPath selects record entries in a response page.
	RecordPath string
	// TotalPath selects the server-reported total record count.
	TotalPath string
	// RequestDelay is the politeness pause between page requests.
	RequestDelay time.Duration
	// PageTimeout bounds a single page request.
	PageTimeout time.Duration
}

// Validate checks the SRU configuration.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("sru.endpoint must be set")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("sru.page_size must be > 0")
	}
	if c.RecordPath == "" {
		return fmt.Errorf("sru.record_path must be set")
	}
	if c.TotalPath == "" {
		return fmt.Errorf("sru.total_path must be set")
	}
	if c.PageTimeout <= 0 {
		return fmt.Errorf("harvest.page_timeout must be > 0")
	}
	return nil
}

// Client walks an SRU catalog page by page.
type Client struct {
	cfg     Config
	client  *http.Client
	extract IdentifierExtractor
	pause   harvest.Pauser
	logger  *zap.Logger
}

// NewClient constructs a Client. The page timeout is enforced by the
// underlying HTTP client in addition to the per-request context.
func NewClient(cfg Config, extractor IdentifierExtractor, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.PageTimeout,
		},
		extract: extractor,
		pause:   harvest.TimerPauser{},
		logger:  logger,
	}
}

// Discover starts a forward-only walk at the given 1-based offset.
func (c *Client) Discover(_ context.Context, startOffset int) harvest.Walk {
	if startOffset < 1 {
		startOffset = 1
	}
	return &walk{client: c, offset: startOffset}
}

// walk is the lazy page iterator. It is not restartable mid-page; a
// resume works at identifier-set granularity via the checkpoint.
type walk struct {
	client *Client
	offset int
	total  int
	pages  int
	buf    []harvest.Identifier
	pos    int
	done   bool
	err    error
}

// Next yields the next identifier, fetching a new page when the
// buffered one is exhausted.
func (w *walk) Next(ctx context.Context) (harvest.Identifier, bool) {
	for w.pos >= len(w.buf) {
		if w.done || w.err != nil {
			return "", false
		}
		if !w.advance(ctx) {
			return "", false
		}
	}
	id := w.buf[w.pos]
	w.pos++
	return id, true
}

// Err reports the error that ended the walk, if any.
func (w *walk) Err() error {
	return w.err
}

// Total reports the count announced on the first page.
func (w *walk) Total() int {
	return w.total
}

// advance fetches the next page into the buffer. Returns false when
// the walk ended, either cleanly or with an error.
func (w *walk) advance(ctx context.Context) bool {
	if w.pages > 0 {
		if w.total > 0 && w.offset > w.total {
			w.done = true
			return false
		}
		w.client.pause.Pause(ctx, w.client.cfg.RequestDelay)
	}
	if err := ctx.Err(); err != nil {
		w.err = err
		return false
	}

	ids, count, total, err := w.client.fetchPage(ctx, w.offset)
	if err != nil {
		w.err = err
		return false
	}
	if w.pages == 0 {
		w.total = total
		w.client.logger.Info("catalog size announced", zap.Int("total", total))
	}
	w.pages++
	if count == 0 {
		w.done = true
		return false
	}

	w.client.logger.Debug("page fetched",
		zap.Int("offset", w.offset),
		zap.Int("entries", count),
		zap.Int("identifiers", len(ids)),
	)
	// Offsets advance by entry count, so they strictly increase even
	// when some entries carried no identifier.
	w.offset += count
	w.buf = ids
	w.pos = 0
	return true
}

// fetchPage issues one searchRetrieve request and parses the entries.
// Any transport or parse failure is fatal to the walk: no partial page
// is assumed complete.
func (c *Client) fetchPage(ctx context.Context, offset int) ([]harvest.Identifier, int, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(offset), http.NoBody)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("build page request: %w", err)
	}
	if c.cfg.HTTPAccept != "" {
		req.Header.Set("Accept", c.cfg.HTTPAccept)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("fetch page at offset %d: %w", offset, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, 0, fmt.Errorf("fetch page at offset %d: unexpected status %d", offset, resp.StatusCode)
	}

	doc, err := xmlquery.Parse(resp.Body)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("parse page at offset %d: %w", offset, err)
	}

	total := 0
	if node, qerr := xmlquery.Query(doc, c.cfg.TotalPath); qerr == nil && node != nil {
		if n, perr := strconv.Atoi(strings.TrimSpace(node.InnerText())); perr == nil {
			total = n
		}
	}

	entries, err := xmlquery.QueryAll(doc, c.cfg.RecordPath)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("select records at offset %d: %w", offset, err)
	}

	ids := make([]harvest.Identifier, 0, len(entries))
	for _, entry := range entries {
		value, ok := c.extract.Extract(entry)
		if !ok {
			// Entries without an extractable identifier are dropped,
			// not treated as fatal.
			continue
		}
		ids = append(ids, harvest.Identifier(value))
	}
	return ids, len(entries), total, nil
}

func (c *Client) pageURL(offset int) string {
	params := url.Values{}
	if c.cfg.Connection != "" {
		params.Set("x-connection", c.cfg.Connection)
	}
	params.Set("operation", "searchRetrieve")
	params.Set("version", c.cfg.Version)
	params.Set("query", c.cfg.Query)
	params.Set("startRecord", strconv.Itoa(offset))
	params.Set("maximumRecords", strconv.Itoa(c.cfg.PageSize))
	if c.cfg.HTTPAccept != "" {
		params.Set("httpAccept", c.cfg.HTTPAccept)
	}
	return c.cfg.Endpoint + "?" + params.Encode()
}
