// Package goocean scrapes live marine conditions from the GoOcean
// information site.
package goocean

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/couchcryptid/cwa-forecast-etl/internal/adapter/upstream"
	"github.com/couchcryptid/cwa-forecast-etl/internal/config"
	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
	"github.com/couchcryptid/cwa-forecast-etl/internal/observability"
)

const pageDataPath = "/Main/GetPageData"

// XPath equivalents of the CSS selectors used on the information page.
const (
	xpathSite       = `//*[@id='SeaCode']`
	xpathWaveHeight = `//*[contains(concat(' ', normalize-space(@class), ' '), ' waveHeight ')]//span`
	xpathWindSpeed  = `//*[contains(concat(' ', normalize-space(@class), ' '), ' windSpeed ')]//span`
	xpathWaterTemp  = `//*[contains(concat(' ', normalize-space(@class), ' '), ' waterTemp ')]//span`
	xpathRiskLevel  = `//*[contains(concat(' ', normalize-space(@class), ' '), ' riskLevel ')]`
)

var taipei = time.FixedZone("CST", 8*60*60)

// SelectorError means a required element was not found, usually because the
// page layout changed.
type SelectorError struct {
	Field string
	XPath string
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("goocean: %s not found (%s)", e.Field, e.XPath)
}

// Scraper reads the information page.
type Scraper struct {
	pageURL  string
	upstream *upstream.Client
	logger   *slog.Logger
}

// NewScraper creates a scraper for the configured page.
func NewScraper(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Scraper {
	return &Scraper{
		pageURL:  cfg.MarineURL,
		upstream: upstream.New("goocean", cfg.HTTPTimeout, upstream.DefaultBackoff(cfg.FetchMaxRetries), metrics, logger),
		logger:   logger,
	}
}

// Scrape fetches the page and extracts the current conditions. The returned
// snapshot is not timestamped.
func (s *Scraper) Scrape(ctx context.Context) (domain.MarineSnapshot, error) {
	resp, err := s.upstream.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	})
	if err != nil {
		return domain.MarineSnapshot{}, fmt.Errorf("scrape goocean: %w", err)
	}

	snap, err := ParsePage(resp.Body)
	if err != nil {
		return domain.MarineSnapshot{}, err
	}
	snap.Source = s.pageURL
	return snap, nil
}

// ParsePage extracts the marine fields from an information page. Only the
// site is required; other missing fields are left empty.
func ParsePage(page []byte) (domain.MarineSnapshot, error) {
	root, err := htmlquery.Parse(bytes.NewReader(page))
	if err != nil {
		return domain.MarineSnapshot{}, fmt.Errorf("parse goocean page: %w", err)
	}

	site, err := text(root, xpathSite)
	if err != nil {
		return domain.MarineSnapshot{}, err
	}
	if site == "" {
		return domain.MarineSnapshot{}, &SelectorError{Field: "site", XPath: xpathSite}
	}

	snap := domain.MarineSnapshot{Site: site}
	for _, f := range []struct {
		dst   *string
		xpath string
	}{
		{&snap.WaveHeight, xpathWaveHeight},
		{&snap.WindSpeed, xpathWindSpeed},
		{&snap.WaterTemp, xpathWaterTemp},
		{&snap.RiskLevel, xpathRiskLevel},
	} {
		if *f.dst, err = text(root, f.xpath); err != nil {
			return domain.MarineSnapshot{}, err
		}
	}
	return snap, nil
}

func text(root *html.Node, xpath string) (string, error) {
	n, err := htmlquery.Query(root, xpath)
	if err != nil {
		return "", fmt.Errorf("goocean xpath %q: %w", xpath, err)
	}
	if n == nil {
		return "", nil
	}
	return strings.TrimSpace(htmlquery.InnerText(n)), nil
}

// PageQuery is the form behind the site's map layer data endpoint.
type PageQuery struct {
	Time      string
	Types     []string
	Action    string
	ValueMode string
}

// PageQueryAt returns the query the site issues for the hour containing t.
func PageQueryAt(t time.Time) PageQuery {
	return PageQuery{
		Time:      t.In(taipei).Format("2006010215"),
		Types:     []string{"waveHeight", "wind", "waterTemp", "riskLevel", "sports-classification"},
		Action:    "12",
		ValueMode: "t3",
	}
}

// FetchPageData posts q to the data endpoint and returns the decoded JSON.
func (s *Scraper) FetchPageData(ctx context.Context, q PageQuery) (map[string]any, error) {
	endpoint, err := s.pageDataURL()
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"time":      {q.Time},
		"type":      {strings.Join(q.Types, ",")},
		"action":    {q.Action},
		"ValueMode": {q.ValueMode},
	}.Encode()

	resp, err := s.upstream.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch goocean page data: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return nil, fmt.Errorf("decode goocean page data: %w", err)
	}
	s.logger.Debug("goocean page data fetched", "time", q.Time, "keys", len(data))
	return data, nil
}

func (s *Scraper) pageDataURL() (string, error) {
	u, err := url.Parse(s.pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid MARINE_URL: %w", err)
	}
	return u.Scheme + "://" + u.Host + pageDataPath, nil
}
