package report

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// HTTPFetcher downloads map images with the hertz HTTP client.
type HTTPFetcher struct {
	client  *client.Client
	maxSize int
}

// NewHTTPFetcher creates a fetcher bounded by timeout and maxSize bytes.
func NewHTTPFetcher(timeout time.Duration, maxSize int) (*HTTPFetcher, error) {
	c, err := client.NewClient(
		client.WithDialTimeout(timeout),
		client.WithClientReadTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}
	return &HTTPFetcher{client: c, maxSize: maxSize}, nil
}

// Fetch returns the response body of a successful GET.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	status, body, err := f.client.Get(ctx, nil, url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if status != consts.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", url, status)
	}
	if f.maxSize > 0 && len(body) > f.maxSize {
		return nil, fmt.Errorf("get %s: body of %d bytes exceeds %d", url, len(body), f.maxSize)
	}
	return body, nil
}
