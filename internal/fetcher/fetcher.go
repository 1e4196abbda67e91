// Package fetcher wraps an HTTP client with browser-like identity headers
// and exponential-backoff retry, returning parsed HTML documents.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// FetchError is returned after all attempts for a URL are exhausted.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxAttempts  int
	MaxBodyBytes int64
}

type Client struct {
	http        *http.Client
	userAgent   string
	maxAttempts int
	maxBody     int64
	logger      *slog.Logger

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(opts Options, logger *slog.Logger) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 10 << 20
	}

	return &Client{
		http:        &http.Client{Timeout: opts.Timeout},
		userAgent:   opts.UserAgent,
		maxAttempts: opts.MaxAttempts,
		maxBody:     opts.MaxBodyBytes,
		logger:      logger.With("component", "fetcher"),
		sleep:       sleepCtx,
	}
}

// Fetch gets url and parses the response body as HTML. Non-2xx responses
// and transport errors both count as attempt failures; attempts are spaced
// by 2^attempt seconds. After the last attempt the error is a *FetchError.
func (c *Client) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		doc, err := c.fetchOnce(ctx, url)
		if err == nil {
			return doc, nil
		}

		lastErr = err
		c.logger.Warn("fetch attempt failed",
			"url", url,
			"attempt", attempt+1,
			"max_attempts", c.maxAttempts,
			"error", err)
	}

	c.logger.Error("fetch failed", "url", url, "attempts", c.maxAttempts, "error", lastErr)
	return nil, &FetchError{URL: url, Attempts: c.maxAttempts, Err: lastErr}
}

func (c *Client) fetchOnce(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	return doc, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
