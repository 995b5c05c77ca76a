package digest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultRetries   = 2
	DefaultBaseDelay = 400 * time.Millisecond

	// Some feed hosts reject obvious bots, so requests look like mobile Safari.
	DefaultUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 18_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Mobile/22C152 Safari/604.1"
	DefaultAccept    = "application/rss+xml, application/atom+xml, application/xml, text/xml, */*"
)

type FetcherOptions struct {
	Retries   int
	BaseDelay time.Duration
	UserAgent string
}

type Fetcher struct {
	httpClient *http.Client
	retries    int
	baseDelay  time.Duration
	userAgent  string
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewFetcher(httpClient *http.Client, opts FetcherOptions) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	return &Fetcher{
		httpClient: httpClient,
		retries:    opts.Retries,
		baseDelay:  opts.BaseDelay,
		userAgent:  opts.UserAgent,
		sleep:      sleepContext,
	}
}

// Get issues a GET request, retrying transport errors with exponential backoff
// (baseDelay * 2^attempt). Non-2xx responses are returned as-is without retry.
// Caller headers override the defaults per key.
func (f *Fetcher) Get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= f.retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept", DefaultAccept)
		for key, values := range header {
			req.Header.Del(key)
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}

		resp, err := f.httpClient.Do(req)
		if err == nil {
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				slog.Warn("Upstream returned non-success status", "url", url, "status", resp.StatusCode)
			}
			return resp, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt < f.retries {
			delay := f.baseDelay * time.Duration(1<<uint(attempt))
			slog.Debug("Fetch failed, retrying", "url", url, "attempt", attempt+1, "delay", delay.String(), "error", err)
			if err := f.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("failed to fetch %s after %d attempts: %w", url, f.retries+1, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
