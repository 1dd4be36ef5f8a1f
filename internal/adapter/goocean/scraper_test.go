package goocean

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/cwa-forecast-etl/internal/config"
	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
	"github.com/couchcryptid/cwa-forecast-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const infoPage = `<!DOCTYPE html>
<html><body>
  <div class="panel">
    <h2 id="SeaCode"> 基隆嶼 </h2>
    <div class="item waveHeight"><label>浪高</label><span>0.8 m</span></div>
    <div class="item windSpeed"><label>風速</label><span>5.2 m/s</span></div>
    <div class="item waterTemp"><label>水溫</label><span>26.1 ℃</span></div>
    <div class="riskLevel low">低風險</div>
  </div>
</body></html>`

func testScraper(pageURL string) *Scraper {
	cfg := &config.Config{MarineURL: pageURL, HTTPTimeout: 5 * time.Second}
	return NewScraper(cfg, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParsePage(t *testing.T) {
	snap, err := ParsePage([]byte(infoPage))
	require.NoError(t, err)

	assert.Equal(t, domain.MarineSnapshot{
		Site:       "基隆嶼",
		WaveHeight: "0.8 m",
		WindSpeed:  "5.2 m/s",
		WaterTemp:  "26.1 ℃",
		RiskLevel:  "低風險",
	}, snap)
}

func TestParsePage_MissingOptionalFields(t *testing.T) {
	snap, err := ParsePage([]byte(`<html><body><span id="SeaCode">澎湖</span></body></html>`))
	require.NoError(t, err)

	assert.Equal(t, "澎湖", snap.Site)
	assert.Empty(t, snap.WaveHeight)
	assert.Empty(t, snap.RiskLevel)
}

func TestParsePage_MissingSite(t *testing.T) {
	_, err := ParsePage([]byte(`<html><body><div class="waveHeight"><span>1</span></div></body></html>`))
	require.Error(t, err)

	var selErr *SelectorError
	require.ErrorAs(t, err, &selErr)
	assert.Equal(t, "site", selErr.Field)
}

func TestScraper_Scrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Information", r.URL.Path)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(infoPage))
	}))
	defer srv.Close()

	s := testScraper(srv.URL + "/Information")
	snap, err := s.Scrape(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "基隆嶼", snap.Site)
	assert.Equal(t, srv.URL+"/Information", snap.Source)
}

func TestScraper_FetchPageData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, pageDataPath, r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "2025051902", r.PostForm.Get("time"))
		assert.Equal(t, "waveHeight,wind,waterTemp,riskLevel,sports-classification", r.PostForm.Get("type"))
		assert.Equal(t, "12", r.PostForm.Get("action"))
		assert.Equal(t, "t3", r.PostForm.Get("ValueMode"))
		_, _ = w.Write([]byte(`{"waveHeight":{"value":"0.8"}}`))
	}))
	defer srv.Close()

	s := testScraper(srv.URL + "/Information")
	q := PageQueryAt(time.Date(2025, 5, 18, 18, 30, 0, 0, time.UTC))

	data, err := s.FetchPageData(context.Background(), q)
	require.NoError(t, err)
	assert.Contains(t, data, "waveHeight")
}
