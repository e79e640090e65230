package websearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"PaperSieve/internal/models"
	"PaperSieve/internal/platform"
)

// Provider 通用网页搜索，只被摘要解析的兜底阶段使用
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Result 统一的搜索结果；Content 是提供方给出的正文（Tavily raw_content），可能为空
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Content string `json:"content,omitempty"`
	Domain  string `json:"domain"`
	Rank    int    `json:"rank"`
}

// Text 用于提取摘要的文本，优先正文
func (r Result) Text() string {
	if strings.TrimSpace(r.Content) != "" {
		return r.Content
	}
	return r.Snippet
}

const (
	ProviderDuckDuckGo = "duckduckgo"
	ProviderGoogle     = "google"
	ProviderTavily     = "tavily"
)

// Config websearch.* 配置
type Config struct {
	Provider     string  `mapstructure:"provider" yaml:"provider"`
	GoogleAPIKey string  `mapstructure:"google_api_key" yaml:"google_api_key"`
	GoogleCX     string  `mapstructure:"google_cx" yaml:"google_cx"`
	TavilyAPIKey string  `mapstructure:"tavily_api_key" yaml:"tavily_api_key"`
	MaxResults   int     `mapstructure:"max_results" yaml:"max_results"`
	MinMatch     float64 `mapstructure:"min_match" yaml:"min_match"`
	Proxy        string  `mapstructure:"proxy" yaml:"proxy"`
	Timeout      int     `mapstructure:"timeout" yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		Provider:   ProviderDuckDuckGo,
		MaxResults: 5,
		MinMatch:   0.3,
		Timeout:    20,
	}
}

func (c Config) Validate() error {
	switch c.Provider {
	case ProviderDuckDuckGo, ProviderGoogle, ProviderTavily:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedProvider, c.Provider)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("websearch.max_results 必须大于 0")
	}
	if c.MinMatch < 0 || c.MinMatch > 1 {
		return fmt.Errorf("websearch.min_match 必须在 [0,1] 之间")
	}
	return nil
}

// New 按配置创建 provider，client 由调用方注入
func New(cfg Config, client *http.Client) (Provider, error) {
	switch cfg.Provider {
	case ProviderDuckDuckGo, "":
		return NewDuckDuckGo(client), nil
	case ProviderGoogle:
		if cfg.GoogleAPIKey == "" {
			return nil, ErrMissingAPIKey
		}
		if cfg.GoogleCX == "" {
			return nil, ErrMissingSearchID
		}
		return NewGoogle(client, cfg.GoogleAPIKey, cfg.GoogleCX), nil
	case ProviderTavily:
		if cfg.TavilyAPIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewTavily(client, cfg.TavilyAPIKey), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

// classify 把 HTTP 层错误映射到本包的哨兵错误，同时保留 ErrTransient 语义
func classify(provider string, err error) error {
	var se *platform.StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w: %w", provider, ErrRateLimited, err)
		case se.Code >= 500:
			return fmt.Errorf("%s: %w: %w", provider, ErrProviderUnavailable, err)
		}
	}
	return fmt.Errorf("%s: %w", provider, err)
}

// throttle 两次调用之间的最小间隔
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	lastCall time.Time
}

func (t *throttle) wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d := t.interval - time.Since(t.lastCall); d > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	t.lastCall = time.Now()
	return nil
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

var (
	mdImage     = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLink      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	refMarker   = regexp.MustCompile(`\[\d+(?:[,\-–]\s*\d+)*\]`)
	mdHeading   = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	doiInString = regexp.MustCompile(`10\.\d{4,9}/[^\s?#"<>]+`)
)

// CleanContent 去掉 markdown 图片/链接语法和 [n] 引用标记
func CleanContent(text string) string {
	text = mdImage.ReplaceAllString(text, "")
	text = mdLink.ReplaceAllString(text, "$1")
	text = refMarker.ReplaceAllString(text, "")
	text = mdHeading.ReplaceAllString(text, "")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ExtractDOI 从 URL 或文本中提取 DOI（小写）
func ExtractDOI(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		s = u
	}
	m := doiInString.FindString(s)
	m = strings.TrimRight(m, ".,;)")
	return strings.ToLower(m)
}

// SameURL 两个 URL 是否指向同一篇论文：DOI 相同，或规范化后的 host+path 相同
func SameURL(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if da, db := ExtractDOI(a), ExtractDOI(b); da != "" && da == db {
		return true
	}
	ua, err1 := url.Parse(a)
	ub, err2 := url.Parse(b)
	if err1 != nil || err2 != nil || ua.Host == "" {
		return false
	}
	ha := strings.TrimPrefix(strings.ToLower(ua.Hostname()), "www.")
	hb := strings.TrimPrefix(strings.ToLower(ub.Hostname()), "www.")
	return ha == hb && strings.TrimRight(ua.Path, "/") == strings.TrimRight(ub.Path, "/")
}

// IsTransient 是否值得用同一个查询重试
func IsTransient(err error) bool {
	return errors.Is(err, models.ErrTransient)
}
