package imagefetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetcher downloads origin images over HTTP. Supplier CDNs are slow and
// occasionally flaky, so one retry is built in.
type Fetcher struct {
	client *resty.Client
}

func New(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(1).
			SetRetryWaitTime(300 * time.Millisecond),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("fetch failed: %w", err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("origin returned %d", resp.StatusCode())
	}
	return resp.Body(), resp.Header().Get("Content-Type"), nil
}
