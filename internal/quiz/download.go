package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/cwa-forecast-etl/internal/adapter/upstream"
	"github.com/couchcryptid/cwa-forecast-etl/internal/observability"
)

// DefaultDownloadURL is the ASP.NET download handler of the sports
// administration portal.
const DefaultDownloadURL = "https://isports.sa.gov.tw/apps/FDownload.aspx"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// ErrNotPDF is returned when the portal answers with something other than a
// PDF, usually an HTML error page after the form fields went stale.
var ErrNotPDF = errors.New("download is not a pdf")

// FileRef identifies a file behind the download form. The values are copied
// from the form the portal renders for the file.
type FileRef struct {
	SysCD          string
	MenuCD         string
	ItemCD         string
	FilePath       string
	FileName       string
	DownloadFileNo string
}

// LifeguardBank is the published lifeguard written test bank.
var LifeguardBank = FileRef{
	SysCD:          "LGM",
	MenuCD:         "M10",
	ItemCD:         "T07",
	FilePath:       "LGM/09/04/1120214/009f3c95-7d06-43d9-a6d8-513a779be3e4.pdf",
	FileName:       "114年度救生員資格檢定學科測驗題庫.pdf",
	DownloadFileNo: "F00000285",
}

func (f FileRef) form() url.Values {
	return url.Values{
		"SYS_CD":                                {f.SysCD},
		"MENU_CD":                               {f.MenuCD},
		"ITEM_CD":                               {f.ItemCD},
		"ctl00$IsportContents$FILE_PATH":        {f.FilePath},
		"ctl00$IsportContents$FILE_NAME":        {f.FileName},
		"ctl00$IsportContents$DOWNLOAD_FILE_NO": {f.DownloadFileNo},
	}
}

// Downloader replays the portal's download form.
type Downloader struct {
	endpoint string
	upstream *upstream.Client
}

// NewDownloader creates a downloader posting to endpoint.
func NewDownloader(endpoint string, timeout time.Duration, maxRetries int, metrics *observability.Metrics, logger *slog.Logger) *Downloader {
	return &Downloader{
		endpoint: endpoint,
		upstream: upstream.New("isports", timeout, upstream.DefaultBackoff(maxRetries), metrics, logger),
	}
}

// Download fetches the referenced PDF.
func (d *Downloader) Download(ctx context.Context, ref FileRef) ([]byte, error) {
	body := ref.form().Encode()

	resp, err := d.upstream.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Referer", d.endpoint)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", ref.FileName, err)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if resp.StatusCode != http.StatusOK || mediaType != "application/pdf" {
		return nil, fmt.Errorf("%w: status %d, content type %q", ErrNotPDF, resp.StatusCode, contentType)
	}
	return resp.Body, nil
}
