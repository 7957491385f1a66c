// Package http fetches pages for the crawler and hands them on as
// types.FetchResult values.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/BenjaminSRussell/scopecrawl/internal/types"
)

// DefaultUserAgent identifies the crawler to the servers it visits.
const DefaultUserAgent = "scopecrawl/1.0"

// DefaultMaxBodySize caps how much of a body is read.
const DefaultMaxBodySize int64 = 10 << 20

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	// Client performs the requests. If not specified, a client with
	// Timeout is built.
	Client Doer

	// Timeout of a single request when Client is not provided.
	Timeout time.Duration

	// UserAgent header sent with every request.
	UserAgent string

	// MaxBodySize caps how many bytes of a body are kept.
	MaxBodySize int64

	// Retry controls backoff between attempts.
	Retry RetryConfig

	// A clock instance for waiting between attempts. If not specified,
	// the default wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

// Fetcher downloads pages with per-host retries.
type Fetcher struct {
	client      Doer
	userAgent   string
	maxBodySize int64
	retry       *RetryHandler
	clock       clock.Clock
	logger      *logrus.Entry
}

// NewFetcher creates a Fetcher, filling unset fields with defaults.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return &Fetcher{
		client:      cfg.Client,
		userAgent:   cfg.UserAgent,
		maxBodySize: cfg.MaxBodySize,
		retry:       NewRetryHandler(cfg.Retry, cfg.Clock),
		clock:       cfg.Clock,
		logger:      cfg.Logger,
	}
}

// UserAgent returns the user agent sent with requests.
func (f *Fetcher) UserAgent() string {
	return f.userAgent
}

// Fetch downloads rawURL. Retryable statuses and network errors are retried
// with backoff. A response that is still failing after the last attempt is
// returned as a result with its status and no body; only network errors are
// returned as a *RetryableError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*types.FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}
	host := u.Hostname()
	logger := f.logger.WithField("url", rawURL)

	for attempt := 0; ; attempt++ {
		if inBackoff, wait := f.retry.IsInBackoff(host); inBackoff {
			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		result, err := f.do(ctx, rawURL)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		status := 0
		if result != nil {
			status = result.StatusCode
		}

		if !f.retry.ShouldRetry(status, err) {
			f.retry.RecordSuccess(host)
			return result, nil
		}

		f.retry.RecordFailure(host, status)
		if attempt >= f.retry.MaxRetries() {
			if err != nil {
				return nil, &RetryableError{Err: err, Attempt: attempt + 1, MaxRetries: f.retry.MaxRetries()}
			}
			return result, nil
		}

		logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"status":  status,
		}).WithError(err).Debug("retrying request")
	}
}

func (f *Fetcher) do(ctx context.Context, rawURL string) (*types.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result := &types.FetchResult{
		RequestedURL: rawURL,
		FinalURL:     rawURL,
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		result.FinalURL = resp.Request.URL.String()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 399 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return result, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("body read failed: %w", err)
	}
	result.Body = body

	return result, nil
}

func (f *Fetcher) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.clock.After(d):
		return nil
	}
}

// IsRetryExhausted reports whether err means every attempt failed.
func IsRetryExhausted(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
