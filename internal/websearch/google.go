package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"PaperSieve/internal/platform"
	"PaperSieve/pkg/logger"
)

// Google Custom Search JSON API
type Google struct {
	client   *http.Client
	apiKey   string
	cx       string
	BaseURL  string
	throttle throttle
}

func NewGoogle(client *http.Client, apiKey, cx string) *Google {
	return &Google{
		client:   client,
		apiKey:   apiKey,
		cx:       cx,
		BaseURL:  "https://www.googleapis.com/customsearch/v1",
		throttle: throttle{interval: 100 * time.Millisecond},
	}
}

func (g *Google) Name() string { return ProviderGoogle }

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Google) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if g.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := g.throttle.wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.cx)
	params.Set("q", query)
	// CSE 每次最多 10 条
	params.Set("num", strconv.Itoa(min(max(maxResults, 1), 10)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("google: failed to create request: %w", err)
	}
	body, err := platform.Do(g.client, req)
	if err != nil {
		return nil, classify(g.Name(), err)
	}

	var resp googleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("google: failed to decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("google: API error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Items) == 0 {
		return nil, ErrNoResults
	}

	results := make([]Result, 0, len(resp.Items))
	for i, item := range resp.Items {
		results = append(results, Result{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Domain:  domainOf(item.Link),
			Rank:    i + 1,
		})
	}
	logger.Debug("Google CSE 搜索完成: %s (%d 条)", query, len(results))
	return results, nil
}
