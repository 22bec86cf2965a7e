// Package diff retrieves pull request diffs and summarizes what they touch.
package diff

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
)

// ErrUnexpectedStatus is returned when the diff URL answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected status fetching diff")

// Fetcher retrieves the textual diff of a pull request.
//
//go:generate mockgen -destination=../../mocks/mock_fetcher.go -package=mocks . Fetcher
type Fetcher interface {
	Fetch(ctx context.Context, diffURL string) (string, error)
}

// HTTPFetcher issues a single unauthenticated GET per diff.
type HTTPFetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPFetcher returns a Fetcher backed by a non-shared HTTP client.
func NewHTTPFetcher(logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{client: cleanhttp.DefaultClient(), logger: logger}
}

// NewHTTPFetcherWithClient is used by tests and callers that need a custom transport.
func NewHTTPFetcherWithClient(client *http.Client, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{client: client, logger: logger}
}

// Fetch returns the response body verbatim.
func (f *HTTPFetcher) Fetch(ctx context.Context, diffURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, diffURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build diff request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch diff: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read diff body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	f.logger.DebugContext(ctx, "diff fetched", "bytes", len(body))
	return string(body), nil
}
