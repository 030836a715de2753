package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Fetcher performs single page fetches with a caller-supplied user agent
// and decodes bodies with the store's declared encoding.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher whose requests time out after the given
// duration. A timeout is classified as a network failure and handled by
// the walker's retry policy.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch issues one GET and returns the decoded markup. Failures are
// classified as FetchError values: network (retryable), http with status
// (retryable for 5xx), or decode (misconfiguration, not retryable).
func (f *Fetcher) Fetch(ctx context.Context, url, userAgent, encoding string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{Kind: KindHTTP, URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}

	markup, err := decode(body, encoding)
	if err != nil {
		return "", &FetchError{Kind: KindDecode, URL: url, Err: err}
	}
	return markup, nil
}

// decode converts the raw body to UTF-8 using the declared encoding label.
// An empty label means the body is already UTF-8.
func decode(body []byte, label string) (string, error) {
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return string(body), nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	if enc == unicode.UTF8 {
		return string(body), nil
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("failed to decode body as %s: %w", label, err)
	}
	return string(decoded), nil
}
