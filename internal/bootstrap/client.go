// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultIndexURL is the base URL of the public Python package index.
	DefaultIndexURL = "https://pypi.org"

	// DefaultTimeout bounds each network operation when no client is supplied.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxArchiveBytes is the upper bound on a downloaded archive (200 MB).
	// The whole archive is held in memory before extraction.
	DefaultMaxArchiveBytes = 200 << 20

	// maxJSONResponseBytes is the upper bound on an index response (10 MB).
	maxJSONResponseBytes = 10 << 20
)

type (
	// Client talks to the package index and downloads archives. It implements
	// both Locator and Fetcher.
	Client struct {
		httpClient      *http.Client
		indexURL        string // Index base URL (default: DefaultIndexURL)
		userAgent       string
		version         string // Optional version pin for index queries
		maxArchiveBytes int64
		reporter        Reporter
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout replaces the HTTP client with one bounded by d.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		cl.httpClient = &http.Client{Timeout: d}
	}
}

// WithIndexURL overrides the package index base URL, primarily for test servers
// and mirrors.
func WithIndexURL(base string) ClientOption {
	return func(cl *Client) {
		cl.indexURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithVersion pins index queries to a specific release of the package.
func WithVersion(v string) ClientOption {
	return func(cl *Client) {
		cl.version = v
	}
}

// WithMaxArchiveBytes caps the size of a downloaded archive.
func WithMaxArchiveBytes(n int64) ClientOption {
	return func(cl *Client) {
		cl.maxArchiveBytes = n
	}
}

// WithClientReporter sets the reporter receiving progress notes.
func WithClientReporter(r Reporter) ClientOption {
	return func(cl *Client) {
		cl.reporter = r
	}
}

// NewClient creates a Client with defaults: pypi.org, a DefaultTimeout HTTP
// client, DefaultMaxArchiveBytes and no progress reporting.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:      &http.Client{Timeout: DefaultTimeout},
		indexURL:        DefaultIndexURL,
		userAgent:       "venvbs/dev",
		maxArchiveBytes: DefaultMaxArchiveBytes,
		reporter:        nopReporter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest creates and executes a GET request with common headers.
func (c *Client) doRequest(ctx context.Context, reqURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", redactError(err))
	}

	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", redactError(err))
	}

	return resp, nil
}

// redactURL strips query parameters and fragments from a URL for log lines
// and error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// redactError rewrites a *url.Error so its message names the redacted URL.
// The underlying cause stays in the chain.
func redactError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	return fmt.Errorf("%s %q: %w", urlErr.Op, redactURL(urlErr.URL), urlErr.Err)
}
