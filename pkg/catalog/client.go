package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skyatlas/starcat/pkg/logging"
	"github.com/skyatlas/starcat/pkg/retry"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultMaxAttempts = 3

	// maxErrorBodyBytes bounds how much of an error response is kept for
	// the error message.
	maxErrorBodyBytes = 512
)

// Config holds catalog client settings.
type Config struct {
	// BaseURL is the root of the TAP service, without the /sync suffix.
	BaseURL string
	// Timeout bounds a single HTTP exchange.
	Timeout time.Duration
	// MaxAttempts is the total number of tries per query, including the
	// first one.
	MaxAttempts int
}

// Client executes ADQL queries against a remote TAP catalog service using
// the synchronous endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retryCfg   *retry.Config
	logger     *zap.Logger
}

// NewClient creates a catalog client. The base URL must be set; timeout and
// attempt count fall back to defaults when zero.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("catalog base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		retryCfg:   retry.ForAttempts(attempts),
		logger:     logger.Named("catalog-client"),
	}, nil
}

// Query runs one ADQL query and returns the decoded table. Transient
// failures (connection resets, 5xx, throttling) are retried with backoff;
// anything else fails immediately.
func (c *Client) Query(ctx context.Context, adql string) (*TableResult, error) {
	c.logger.Debug("Executing catalog query",
		zap.String("query", logging.SanitizeQuery(adql)))

	start := time.Now()
	result, err := retry.DoWithResult(ctx, c.retryCfg, func() (*TableResult, error) {
		return c.doQuery(ctx, adql)
	})
	if err != nil {
		c.logger.Error("Catalog query failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	c.logger.Info("Catalog query completed",
		zap.Int("rows", result.RowCount()),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// tapResponse is the wire shape of a FORMAT=json TAP response.
type tapResponse struct {
	Metadata []Column            `json:"metadata"`
	Data     [][]json.RawMessage `json:"data"`
}

func (c *Client) doQuery(ctx context.Context, adql string) (*TableResult, error) {
	form := url.Values{
		"REQUEST": {"doQuery"},
		"LANG":    {"ADQL"},
		"FORMAT":  {"json"},
		"QUERY":   {adql},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/sync", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("catalog query returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload tapResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	return NewTableResult(payload.Metadata, payload.Data)
}
