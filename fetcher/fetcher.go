// Package fetcher issues single outbound GET requests to external content
// sources. Every failure is reported as an *Error carrying a Kind so callers
// can degrade without inspecting transport details.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"io"
	"labcomm/monitoring"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxBodySize = 2 << 20
	DefaultUserAgent   = "labcomm/1.0"
)

var errBodyTooLarge = errors.New("response body exceeds limit")

type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	maxBodySize int64
	userAgent   string
	source      string
}

type Option func(*Fetcher)

// WithClient replaces the underlying HTTP client, e.g. with one that signs
// requests. The fetcher timeout still applies through the request context.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = timeout
	}
}

func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

func WithUserAgent(userAgent string) Option {
	return func(f *Fetcher) {
		f.userAgent = userAgent
	}
}

// WithSource sets the label used for metrics and logs.
func WithSource(source string) Option {
	return func(f *Fetcher) {
		f.source = source
	}
}

func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{},
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		userAgent:   DefaultUserAgent,
		source:      "external",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// For returns a copy of the fetcher labelled with another source. The HTTP
// client is shared.
func (f *Fetcher) For(source string) *Fetcher {
	clone := *f
	clone.source = source
	return &clone
}

func (f *Fetcher) Source() string {
	return f.source
}

// Fetch performs one GET and returns the body of a response with status < 400.
// The returned error is always an *Error. There are no retries.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	timer := prometheus.NewTimer(monitoring.ExternalFetchDuration.WithLabelValues(f.source))
	body, err := f.fetch(ctx, rawURL)
	timer.ObserveDuration()

	if err != nil {
		var fetchErr *Error
		errors.As(err, &fetchErr)
		monitoring.ExternalFetches.WithLabelValues(f.source, fetchErr.Kind.String()).Inc()
		log.WithFields(log.Fields{
			"source": f.source,
			"url":    redact(rawURL),
			"kind":   fetchErr.Kind.String(),
			"status": fetchErr.StatusCode,
		}).Warnf("External fetch failed: %v", fetchErr.Err)
		return nil, fetchErr
	}

	monitoring.ExternalFetches.WithLabelValues(f.source, "ok").Inc()
	return body, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, transportError(rawURL, 0, fmt.Errorf("invalid url: %w", err))
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, transportError(rawURL, 0, fmt.Errorf("invalid url %q: absolute http(s) URL required", redact(rawURL)))
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, transportError(rawURL, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, transportError(rawURL, 0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &Error{Kind: NotFound, URL: redact(rawURL), StatusCode: resp.StatusCode, Err: ErrUnexpectedStatusCode}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, transportError(rawURL, resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode))
	}

	// Read one byte past the limit to tell a full body from a truncated one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, transportError(rawURL, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, transportError(rawURL, resp.StatusCode, errBodyTooLarge)
	}

	return body, nil
}

func transportError(rawURL string, status int, err error) *Error {
	return &Error{Kind: Transport, URL: redact(rawURL), StatusCode: status, Err: err}
}

// redact drops credentials carried in the query string, such as Graph API
// access tokens, before a URL reaches logs or errors.
func redact(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	changed := false
	for _, key := range []string{"access_token", "oauth_token", "key"} {
		if query.Has(key) {
			query.Set(key, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return rawURL
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
