// Package httpclient is the transport layer for metadata provider calls:
// a GET client with request rate limiting, bounded retries with
// exponential backoff, and an injectable base for tests.
package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"golang.org/x/time/rate"

	"github.com/bookerybooks/bookery/pkg/errcodes"
	"github.com/bookerybooks/bookery/pkg/version"
)

// Getter is the transport capability consumed by metadata providers. Get
// returns the raw response body of a JSON endpoint after applying the
// client's own rate limiting and retry policy; callers decode it.
type Getter interface {
	Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error)
}

// retryableStatuses are throttling or transient server responses worth
// retrying with backoff.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

const (
	defaultRequestsPerSecond = 10
	defaultBurst             = 1
	defaultMaxRetries        = 3
	defaultRetryDelay        = time.Second
	defaultTimeout           = 30 * time.Second

	// maxResponseBytes caps how much of a response body we read.
	maxResponseBytes = 4 << 20
)

// Options configures a Client. Zero values fall back to defaults;
// MaxRetries < 0 disables retries entirely.
type Options struct {
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	RetryDelay        time.Duration
	Timeout           time.Duration
}

// Client wraps http.Client with a token-bucket rate limiter and a retry
// loop for transient failures.
type Client struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

func New(opts Options) *Client {
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	} else if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	return &Client{
		client:     &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}
}

// Get requests a URL with optional query parameters. Network failures and
// non-retryable statuses fail immediately; retryable statuses (429, 5xx)
// are retried with exponential backoff until the attempt budget runs out.
// Every failure is a fetch error; context cancellation surfaces the same
// way so callers treat it as an ordinary transport failure.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	requestURL := rawURL
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		requestURL = rawURL + sep + params.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.WithStack(errcodes.Fetchf("Request failed: %s: %v", requestURL, err))
	}

	log := logger.FromContext(ctx)

	attempts := 1 + c.maxRetries
	lastStatus := 0
	for attempt := 0; attempt < attempts; attempt++ {
		body, status, err := c.do(ctx, requestURL)
		if err != nil {
			return nil, errors.WithStack(errcodes.Fetchf("Request failed: %s: %v", requestURL, err))
		}
		lastStatus = status

		if status == http.StatusOK {
			return body, nil
		}
		if !retryableStatuses[status] {
			return nil, errors.WithStack(errcodes.Fetchf("HTTP %d from %s", status, requestURL))
		}

		if attempt < attempts-1 {
			delay := c.retryDelay * (1 << attempt)
			log.Warn("retrying request", logger.Data{
				"url":     requestURL,
				"status":  status,
				"delay":   delay.String(),
				"attempt": attempt + 1,
				"retries": c.maxRetries,
			})
			select {
			case <-ctx.Done():
				return nil, errors.WithStack(errcodes.Fetchf("Request failed: %s: %v", requestURL, ctx.Err()))
			case <-time.After(delay):
			}
		}
	}

	return nil, errors.WithStack(errcodes.Fetchf("HTTP %d from %s after %d attempts", lastStatus, requestURL, attempts))
}

func (c *Client) do(ctx context.Context, requestURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	req.Header.Set("User-Agent", "bookery/"+version.Version)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, errors.WithStack(err)
	}
	return body, resp.StatusCode, nil
}
