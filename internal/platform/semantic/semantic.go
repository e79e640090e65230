// Package semantic 通过 Semantic Scholar 按 DOI 查摘要，用于没有官方元数据 API 的出版商
package semantic

import (
	"context"
	"encoding/json"
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

const fields = "title,abstract,authors,venue,fieldsOfStudy"

type Config struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	APIBase string `mapstructure:"api_base" yaml:"api_base"`
	Proxy   string `mapstructure:"proxy" yaml:"proxy"`
	Timeout int    `mapstructure:"timeout" yaml:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		APIBase: "https://api.semanticscholar.org/graph/v1",
		Timeout: 20,
	}
}

func (c *Config) Validate() error {
	if c.APIBase == "" {
		return fmt.Errorf("api_base cannot be empty")
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

func (c *Client) Name() string { return "semantic" }

type paper struct {
	Title         string   `json:"title"`
	Abstract      *string  `json:"abstract"`
	Venue         string   `json:"venue"`
	FieldsOfStudy []string `json:"fieldsOfStudy"`
	Authors       []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

// Lookup 404 表示 Semantic Scholar 没收录，返回 nil, nil
func (c *Client) Lookup(ctx context.Context, p *models.PaperRecord) (*platform.NativeMeta, error) {
	doi := strings.TrimSpace(p.ID)
	if doi == "" {
		return nil, nil
	}

	segs := strings.Split(doi, "/")
	for i := range segs {
		segs[i] = url.PathEscape(segs[i])
	}
	reqURL := fmt.Sprintf("%s/paper/DOI:%s?%s", strings.TrimRight(c.config.APIBase, "/"),
		strings.Join(segs, "/"), url.Values{"fields": {fields}}.Encode())

	header := http.Header{}
	if c.config.APIKey != "" {
		header.Set("x-api-key", c.config.APIKey)
	}

	body, err := platform.Get(ctx, c.httpClient, reqURL, header)
	if err != nil {
		var se *platform.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			logger.Debug("[semantic] 未收录: %s", doi)
			return nil, nil
		}
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}

	var sp paper
	if err := json.Unmarshal(body, &sp); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}
	if sp.Abstract == nil || strings.TrimSpace(*sp.Abstract) == "" {
		return nil, nil
	}

	meta := &platform.NativeMeta{
		Abstract:   strings.TrimSpace(*sp.Abstract),
		Journal:    sp.Venue,
		Categories: sp.FieldsOfStudy,
	}
	for _, a := range sp.Authors {
		if a.Name != "" {
			meta.Authors = append(meta.Authors, a.Name)
		}
	}
	return meta, nil
}

func init() {
	core.MustRegisterLookup(core.LookupProvider{
		Name: "semantic",
		New: func(cfg platform.Config) (platform.NativeLookup, error) {
			c, _ := cfg.(*Config)
			return New(c)
		},
		DefaultConfig: func() platform.Config { return DefaultConfig() },
	})
}
