// Package cwa fetches forecast datasets from the Central Weather
// Administration open-data REST API.
package cwa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/couchcryptid/cwa-forecast-etl/internal/adapter/upstream"
	"github.com/couchcryptid/cwa-forecast-etl/internal/config"
	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
	"github.com/couchcryptid/cwa-forecast-etl/internal/observability"
)

const redacted = "REDACTED"

var (
	ErrUnauthorized = upstream.ErrUnauthorized
	ErrCircuitOpen  = upstream.ErrCircuitOpen

	// ErrRejected means the API answered but flagged the request as failed
	// (success != "true"), typically an invalid key or dataset.
	ErrRejected = errors.New("cwa request rejected")
)

// Client fetches one dataset.
type Client struct {
	apiKey    string
	baseURL   string
	dataset   string
	locations []string
	upstream  *upstream.Client
	logger    *slog.Logger
}

// NewClient creates a CWA client from configuration.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:    cfg.CWAAPIKey,
		baseURL:   cfg.CWABaseURL,
		dataset:   cfg.CWADataset,
		locations: cfg.CWALocations,
		upstream:  upstream.New("cwa", cfg.HTTPTimeout, upstream.DefaultBackoff(cfg.FetchMaxRetries), metrics, logger),
		logger:    logger,
	}
}

// Fetch downloads and decodes the configured dataset.
func (c *Client) Fetch(ctx context.Context) (domain.SourcedPayload, error) {
	u := c.requestURL()

	resp, err := c.upstream.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return domain.SourcedPayload{}, fmt.Errorf("fetch %s: %w", c.dataset, err)
	}

	raw, err := domain.DecodePayload(resp.Body)
	if err != nil {
		return domain.SourcedPayload{}, fmt.Errorf("fetch %s: %w", c.dataset, err)
	}
	if success, _ := raw["success"].(string); success != "true" {
		return domain.SourcedPayload{}, fmt.Errorf("%w: %s: success=%q", ErrRejected, c.dataset, success)
	}

	c.logger.Debug("cwa dataset fetched", "dataset", c.dataset, "bytes", len(resp.Body))
	return domain.SourcedPayload{Raw: raw, SourceURL: RedactURL(u)}, nil
}

func (c *Client) requestURL() string {
	params := url.Values{
		"Authorization": {c.apiKey},
		"format":        {"JSON"},
	}
	if len(c.locations) > 0 {
		params.Set("locationName", strings.Join(c.locations, ","))
	}
	return fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(c.dataset), params.Encode())
}

// RedactURL replaces the Authorization query value so the URL can be logged
// and published. A URL that does not parse loses its whole query.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		base, _, _ := strings.Cut(raw, "?")
		return base
	}
	q := u.Query()
	if q.Has("Authorization") {
		q.Set("Authorization", redacted)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
