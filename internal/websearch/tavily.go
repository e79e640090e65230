package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"PaperSieve/internal/platform"
	"PaperSieve/pkg/logger"
)

// Tavily /search，开启 include_raw_content 以拿到页面正文
type Tavily struct {
	client  *http.Client
	apiKey  string
	BaseURL string
}

func NewTavily(client *http.Client, apiKey string) *Tavily {
	return &Tavily{
		client:  client,
		apiKey:  apiKey,
		BaseURL: "https://api.tavily.com",
	}
}

func (t *Tavily) Name() string { return ProviderTavily }

type tavilyRequest struct {
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []struct {
		URL        string  `json:"url"`
		Title      string  `json:"title"`
		Content    string  `json:"content"`
		RawContent string  `json:"raw_content"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if t.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	payload, err := json.Marshal(tavilyRequest{
		Query:             query,
		SearchDepth:       "basic",
		MaxResults:        max(maxResults, 1),
		IncludeRawContent: true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(t.BaseURL, "/")+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tavily: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	body, err := platform.Do(t.client, req)
	if err != nil {
		return nil, classify(t.Name(), err)
	}

	var resp tavilyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tavily: failed to decode response: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, ErrNoResults
	}

	results := make([]Result, 0, len(resp.Results))
	for i, r := range resp.Results {
		results = append(results, Result{
			URL:     r.URL,
			Title:   r.Title,
			Snippet: r.Content,
			Content: CleanContent(r.RawContent),
			Domain:  domainOf(r.URL),
			Rank:    i + 1,
		})
	}
	logger.Debug("Tavily 搜索完成: %s (%d 条)", query, len(results))
	return results, nil
}
