package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sneakwatch/go-release-pipeline/internal/normalize"
)

// FeedAdapter fetches a JSON feed per target. It accepts either a bare
// array of records or an object wrapping them under "products" or "releases".
type FeedAdapter struct {
	client *resty.Client
	// Feeds maps a job target to its feed URL; jobs may override it with a
	// "url" param.
	Feeds map[string]string
}

func NewFeedAdapter(feeds map[string]string, timeout time.Duration) *FeedAdapter {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")
	return &FeedAdapter{client: c, Feeds: feeds}
}

func (a *FeedAdapter) Fetch(ctx context.Context, target string, params map[string]any) ([]normalize.RawRecord, error) {
	url, _ := params["url"].(string)
	if url == "" {
		url = a.Feeds[target]
	}
	if url == "" {
		return nil, fmt.Errorf("no feed url configured for target %q", target)
	}

	resp, err := a.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: status %d", target, resp.StatusCode())
	}
	return decodeFeed(resp.Body())
}

func decodeFeed(body []byte) ([]normalize.RawRecord, error) {
	var records []normalize.RawRecord
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}
	var wrapped struct {
		Products []normalize.RawRecord `json:"products"`
		Releases []normalize.RawRecord `json:"releases"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	if wrapped.Products != nil {
		return wrapped.Products, nil
	}
	return wrapped.Releases, nil
}
