// Package springer Springer Nature meta API（PAM 格式），为 nature 系列期刊补摘要
package springer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"PaperSieve/internal/core"
	"PaperSieve/internal/models"
	"PaperSieve/internal/platform"
	"PaperSieve/pkg/logger"
)

var ErrMissingAPIKey = errors.New("springer api_key 未配置")

type Config struct {
	APIKey           string `mapstructure:"api_key" yaml:"api_key"`
	APIBase          string `mapstructure:"api_base" yaml:"api_base"`
	BatchSize        int    `mapstructure:"batch_size" yaml:"batch_size"`
	MaxAbstractChars int    `mapstructure:"max_abstract_chars" yaml:"max_abstract_chars"`
	Proxy            string `mapstructure:"proxy" yaml:"proxy"`
	Timeout          int    `mapstructure:"timeout" yaml:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		APIBase:          "https://api.springernature.com/meta/v2/pam",
		BatchSize:        20,
		MaxAbstractChars: 3000,
		Timeout:          30,
	}
}

func (c *Config) Validate() error {
	if c.APIBase == "" {
		return fmt.Errorf("api_base cannot be empty")
	}
	if c.BatchSize <= 0 || c.BatchSize > 25 {
		return fmt.Errorf("batch_size must be between 1 and 25, got %d", c.BatchSize)
	}
	if c.MaxAbstractChars < 0 {
		return fmt.Errorf("max_abstract_chars cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.Timeout)
	}
	return nil
}

type Client struct {
	config     *Config
	httpClient *http.Client
}

func New(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Client{config: config, httpClient: core.NewHTTPClient(config.Timeout, config.Proxy)}, nil
}

func (c *Client) Name() string { return "springer" }

func (c *Client) BatchSize() int { return c.config.BatchSize }

func (c *Client) Lookup(ctx context.Context, p *models.PaperRecord) (*platform.NativeMeta, error) {
	metas, err := c.LookupBatch(ctx, []*models.PaperRecord{p})
	if err != nil {
		return nil, err
	}
	return metas[p.ID], nil
}

// LookupBatch 一次最多 BatchSize 个 DOI，多出的部分分批请求
func (c *Client) LookupBatch(ctx context.Context, papers []*models.PaperRecord) (map[string]*platform.NativeMeta, error) {
	if c.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	out := make(map[string]*platform.NativeMeta, len(papers))
	for start := 0; start < len(papers); start += c.config.BatchSize {
		end := start + c.config.BatchSize
		if end > len(papers) {
			end = len(papers)
		}
		batch := papers[start:end]

		dois := make([]string, 0, len(batch))
		for _, p := range batch {
			dois = append(dois, fmt.Sprintf(`doi:"%s"`, p.ID))
		}

		params := url.Values{}
		params.Set("api_key", c.config.APIKey)
		params.Set("s", "1")
		params.Set("p", "25")
		params.Set("q", "("+strings.Join(dois, " OR ")+")")

		logger.Debug("[springer] 批次 %d: %d 个 DOI", start/c.config.BatchSize+1, len(batch))
		body, err := platform.Get(ctx, c.httpClient, c.config.APIBase+"?"+params.Encode(), nil)
		if err != nil {
			return out, fmt.Errorf("springer 请求失败: %w", err)
		}

		articles, err := ParsePAM(body)
		if err != nil {
			return out, err
		}
		for doi, meta := range articles {
			meta.Abstract = truncate(meta.Abstract, c.config.MaxAbstractChars)
			out[doi] = meta
		}
	}
	logger.Info("[springer] %d 篇中找到 %d 篇摘要", len(papers), len(out))
	return out, nil
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func init() {
	core.MustRegisterLookup(core.LookupProvider{
		Name: "springer",
		New: func(cfg platform.Config) (platform.NativeLookup, error) {
			c, _ := cfg.(*Config)
			return New(c)
		},
		DefaultConfig: func() platform.Config { return DefaultConfig() },
	})
}
