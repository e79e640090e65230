package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"PaperSieve/internal/core"
	"PaperSieve/internal/models"
	"PaperSieve/internal/platform"
	"PaperSieve/pkg/logger"
)

type Adapter struct {
	config     *Config
	httpClient *http.Client
}

func NewAdapter(config *Config) (*Adapter, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Adapter{
		config:     config,
		httpClient: core.NewHTTPClient(config.Timeout, config.Proxy),
	}, nil
}

func (a *Adapter) Name() string { return "arxiv" }

func (a *Adapter) GetConfig() platform.Config { return a.config }

// Fetch arXiv 的 RSS 支持把多个 category 用 + 拼在一个请求里。
// 条目的 Category 记为各自 feed 给出的主分类，交叉列出的论文由 normalizer 合并。
func (a *Adapter) Fetch(ctx context.Context, categories []string) ([]platform.RawEntry, error) {
	var cats []string
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("arxiv 至少需要一个 category")
	}

	rssURL := a.config.RSSBase + strings.Join(cats, "+")
	logger.Info("[arXiv] 拉取 RSS: %s", rssURL)

	body, err := platform.Get(ctx, a.httpClient, rssURL, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv RSS 请求失败: %w", err)
	}

	entries, err := platform.ParseFeed(body, "arxiv", strings.Join(cats, "+"))
	if err != nil {
		return nil, err
	}
	for i := range entries {
		// RSS 里每条只有一个 <category>，作为该条目的声明分类；没有时不使用拼接后的 cat1+cat2
		entries[i].Category = ""
		if len(entries[i].Tags) > 0 {
			entries[i].Category = entries[i].Tags[0]
		}
	}
	logger.Info("[arXiv] RSS 返回 %d 条", len(entries))
	return entries, nil
}

// Lookup 通过 Atom API 的 id_list 查询单篇论文
func (a *Adapter) Lookup(ctx context.Context, p *models.PaperRecord) (*platform.NativeMeta, error) {
	params := url.Values{}
	params.Add("id_list", p.ID)
	params.Add("max_results", "1")

	apiURL := a.config.APIBase + "?" + params.Encode()
	logger.Debug("[arXiv] API 请求: %s", p.ID)

	body, err := platform.Get(ctx, a.httpClient, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}

	metas, err := ParseAtomFeed(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}
	meta, ok := metas[p.ID]
	if !ok || strings.TrimSpace(meta.Abstract) == "" {
		return nil, nil
	}
	return meta, nil
}
