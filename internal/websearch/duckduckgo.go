package websearch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PaperSieve/internal/models"
	"PaperSieve/internal/platform"
	"PaperSieve/pkg/logger"
)

// DuckDuckGo 抓取 html.duckduckgo.com 的结果页，不需要 API key
type DuckDuckGo struct {
	client   *http.Client
	BaseURL  string
	throttle throttle
}

func NewDuckDuckGo(client *http.Client) *DuckDuckGo {
	return &DuckDuckGo{
		client:   client,
		BaseURL:  "https://html.duckduckgo.com/html/",
		throttle: throttle{interval: 2 * time.Second},
	}
}

func (d *DuckDuckGo) Name() string { return ProviderDuckDuckGo }

// SetInterval 调整请求间隔（测试用）
func (d *DuckDuckGo) SetInterval(interval time.Duration) { d.throttle.interval = interval }

func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("duckduckgo: empty query")
	}
	if err := d.throttle.wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", "us-en")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	body, err := platform.Do(d.client, req)
	if err != nil {
		return nil, classify(d.Name(), err)
	}

	if bytes.Contains(bytes.ToLower(body), []byte("captcha")) {
		logger.Debug("DuckDuckGo 返回验证码页面: %s", query)
		return nil, fmt.Errorf("duckduckgo: %w: %w", ErrRateLimited, models.ErrTransient)
	}

	results, err := parseDuckDuckGo(body, maxResults)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	logger.Debug("DuckDuckGo 搜索完成: %s (%d 条)", query, len(results))
	return results, nil
}

func parseDuckDuckGo(body []byte, maxResults int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: failed to parse HTML: %w", err)
	}

	var results []Result
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if maxResults > 0 && len(results) >= maxResults {
			return false
		}
		a := s.Find("a.result__a").First()
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		finalURL := extractFinalURL(href)
		if finalURL == "" {
			return true
		}
		results = append(results, Result{
			URL:     finalURL,
			Title:   strings.TrimSpace(a.Text()),
			Snippet: strings.Join(strings.Fields(s.Find(".result__snippet").First().Text()), " "),
			Domain:  domainOf(finalURL),
			Rank:    len(results) + 1,
		})
		return true
	})
	return results, nil
}

// extractFinalURL 解析 DuckDuckGo 的跳转链接 /l/?uddg=...
func extractFinalURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasPrefix(parsed.Path, "/l/") {
		if uddg := parsed.Query().Get("uddg"); uddg != "" {
			return uddg
		}
		return ""
	}
	if parsed.Scheme == "http" || parsed.Scheme == "https" {
		return href
	}
	return ""
}
