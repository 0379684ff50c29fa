package mdast

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnsupportedScheme is returned by ParseURL for URLs that are not http or
// https.
var ErrUnsupportedScheme = errors.New("fetch: unsupported scheme")

// URLParseRequest configures ParseURL.
type URLParseRequest struct {
	URL     string
	Client  *http.Client
	Options []Option
}

// ParseURL fetches Markdown over HTTP(S) and parses the response body.
func ParseURL(ctx context.Context, req URLParseRequest) (*Document, error) {
	if req.URL == "" {
		return nil, errors.New("fetch: URL is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	client := req.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	if httpReq.URL.Scheme != "http" && httpReq.URL.Scheme != "https" {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, httpReq.URL.Scheme)
	}
	httpReq.Header.Set("Accept", "text/markdown, text/plain;q=0.9, */*;q=0.1")
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch: status %s", resp.Status)
	}
	doc, err := Parse(ParseRequest{Reader: resp.Body, Options: req.Options})
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return doc, nil
}
