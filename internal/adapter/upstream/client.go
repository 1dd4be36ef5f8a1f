// Package upstream wraps outbound HTTP calls to the public data sources with
// retries, exponential backoff and a circuit breaker.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/cwa-forecast-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/sony/gobreaker"
)

// Maximum response body read into memory.
const maxBodyBytes = 32 << 20

var (
	// ErrUnauthorized is returned for 401/403 responses. It is never retried.
	ErrUnauthorized = errors.New("upstream rejected credentials")
	// ErrCircuitOpen is returned without a request while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrResponseTooLarge is returned when a body exceeds the read limit.
	// It is never retried.
	ErrResponseTooLarge = errors.New("response too large")

	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
)

// StatusError is a non-retryable HTTP status other than 401/403.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Backoff controls the retry schedule: Initial doubles per attempt up to Max.
type Backoff struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
}

// DefaultBackoff returns the 500ms..5s schedule with the given retry count.
func DefaultBackoff(maxRetries int) Backoff {
	return Backoff{MaxRetries: maxRetries, Initial: 500 * time.Millisecond, Max: 5 * time.Second}
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client executes requests for one named upstream.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	backoff    Backoff
	maxBody    int64
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// New creates a client whose requests are bounded by timeout.
func New(name string, timeout time.Duration, backoff Backoff, metrics *observability.Metrics, logger *slog.Logger) *Client {
	c := &Client{
		name:       name,
		httpClient: &http.Client{Timeout: timeout},
		backoff:    backoff,
		maxBody:    maxBodyBytes,
		metrics:    metrics,
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful:  isBreakerSuccess,
		OnStateChange: c.onStateChange,
	})
	return c
}

// Name returns the upstream name used in logs and metric labels.
func (c *Client) Name() string {
	return c.name
}

// Do sends the request built by build, retrying transport errors, 429 and 5xx.
// build is called once per attempt so request bodies can be replayed.
func (c *Client) Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*Response, error) {
	delay := c.backoff.Initial
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("build %s request: %w", c.name, err)
		}

		resp, err := c.attempt(req)
		if err == nil {
			c.metrics.UpstreamRequests.WithLabelValues(c.name, "success").Inc()
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.metrics.UpstreamRequests.WithLabelValues(c.name, "error").Inc()
			return nil, fmt.Errorf("%s: %w", c.name, ErrCircuitOpen)
		}
		if !retryable(err) || ctx.Err() != nil {
			c.metrics.UpstreamRequests.WithLabelValues(c.name, "error").Inc()
			return nil, fmt.Errorf("%s request: %w", c.name, err)
		}

		lastErr = err
		if attempt >= c.backoff.MaxRetries {
			break
		}

		c.metrics.UpstreamRequests.WithLabelValues(c.name, "retry").Inc()
		c.logger.Warn("upstream request failed, retrying",
			"upstream", c.name,
			"attempt", attempt+1,
			"backoff", delay,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, delay) {
			return nil, ctx.Err()
		}
		delay = retry.NextBackoff(delay, c.backoff.Max)
	}

	c.metrics.UpstreamRequests.WithLabelValues(c.name, "error").Inc()
	return nil, fmt.Errorf("%s request failed after %d attempts: %w", c.name, c.backoff.MaxRetries+1, lastErr)
}

func (c *Client) attempt(req *http.Request) (*Response, error) {
	start := time.Now()
	defer func() {
		c.metrics.UpstreamDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	}()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, stripQuery(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if int64(len(body)) > c.maxBody {
			return nil, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, c.maxBody)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, errRateLimited
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: status %d", errServerError, resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
		}

		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Response), nil
}

func (c *Client) onStateChange(name string, from, to gobreaker.State) {
	c.logger.Warn("circuit breaker state changed", "upstream", name, "from", from.String(), "to", to.String())
	c.metrics.CircuitState.WithLabelValues(name).Set(float64(to))
}

// isBreakerSuccess keeps caller errors (bad credentials, 4xx) from tripping
// the breaker; only outages count as failures.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var statusErr *StatusError
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrResponseTooLarge) || errors.As(err, &statusErr)
}

func retryable(err error) bool {
	var statusErr *StatusError
	return !errors.Is(err, ErrUnauthorized) && !errors.Is(err, ErrResponseTooLarge) && !errors.As(err, &statusErr)
}

// stripQuery drops the query string from transport errors, which may carry
// credentials, before they reach logs.
func stripQuery(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	if u, perr := url.Parse(urlErr.URL); perr == nil && u.RawQuery != "" {
		u.RawQuery = ""
		urlErr.URL = u.String()
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
