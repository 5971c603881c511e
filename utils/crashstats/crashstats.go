// Package crashstats is a small client for the crash-stats public API.
package crashstats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
	"github.com/sthembisoo/unique-stacks/cmd/crashstats/types"
)

const (
	DefaultAPIURL = "https://crash-stats.mozilla.com/api"

	reportListPath     = "/ReportList/"
	processedCrashPath = "/ProcessedCrash/"
	tokenHeader        = "Auth-Token"
)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("crash-stats API returned status %d: %s", e.StatusCode, e.Body)
}

// Client fetches report lists and processed crashes.
type Client struct {
	client *resty.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends an API token with every request. Empty tokens are ignored.
func WithToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.client.SetHeader(tokenHeader, token)
		}
	}
}

// WithTimeout sets a per-request timeout. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.SetTimeout(timeout)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Accept", "application/json"),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListReports returns the crash reports matching signature between startDate
// and endDate. Only the first page returned by the API is considered.
func (c *Client) ListReports(ctx context.Context, signature, startDate, endDate string) ([]types.Hit, error) {
	params := map[string]string{
		"signature":  signature,
		"start_date": startDate,
		"end_date":   endDate,
	}

	var reportList types.ReportList
	if err := c.get(ctx, reportListPath, params, &reportList); err != nil {
		return nil, fmt.Errorf("failed to fetch report list: %w", err)
	}

	// encoding/json leaves the slice nil only when hits is absent or null
	if reportList.Hits == nil {
		return nil, types.ErrMissingHits
	}

	if _, index, found := lo.FindIndexOf(reportList.Hits, func(hit types.Hit) bool {
		return hit.UUID == ""
	}); found {
		return nil, fmt.Errorf("report list hit %d has no uuid", index)
	}

	if reportList.Total > len(reportList.Hits) {
		c.logger.Warn("report list truncated, only the first page is reported",
			"hits", len(reportList.Hits), "total", reportList.Total)
	}

	c.logger.Debug("fetched report list", "signature", signature, "hits", len(reportList.Hits))
	return reportList.Hits, nil
}

// GetProcessedCrash fetches the processed crash record for crashID.
func (c *Client) GetProcessedCrash(ctx context.Context, crashID string) (*types.ProcessedCrash, error) {
	var crash types.ProcessedCrash
	if err := c.get(ctx, processedCrashPath, map[string]string{"crash_id": crashID}, &crash); err != nil {
		return nil, fmt.Errorf("failed to fetch processed crash %s: %w", crashID, err)
	}

	c.logger.Debug("fetched processed crash", "crash_id", crashID)
	return &crash, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	response, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return err
	}

	if !response.IsSuccess() {
		return &StatusError{StatusCode: response.StatusCode(), Body: string(response.Body())}
	}

	if err := json.Unmarshal(response.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
