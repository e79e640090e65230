// Package journal 出版商 RSS（nature / science / optica / aps）的通用适配器，
// 不同出版商只有 feed 地址不同，条目字段差异由 feed 包的 profile 处理。
package journal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"PaperSieve/internal/core"
	"PaperSieve/internal/platform"
	"PaperSieve/pkg/logger"
	"PaperSieve/pkg/retry"
)

type Adapter struct {
	config     *Config
	httpClient *http.Client
}

func NewAdapter(config *Config) (*Adapter, error) {
	if config == nil {
		return nil, fmt.Errorf("journal config is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Adapter{
		config:     config,
		httpClient: core.NewHTTPClient(config.Timeout, config.Proxy),
	}, nil
}

func (a *Adapter) Name() string { return a.config.Name }

func (a *Adapter) GetConfig() platform.Config { return a.config }

// Fetch 逐个 category 请求；某个 category 失败不影响其余，最后把错误合并返回
func (a *Adapter) Fetch(ctx context.Context, categories []string) ([]platform.RawEntry, error) {
	var all []platform.RawEntry
	var errs []error

	for i, cat := range categories {
		cat = strings.TrimSpace(cat)
		if cat == "" {
			continue
		}
		if i > 0 && a.config.DelayMS > 0 {
			if err := retry.Sleep(ctx, time.Duration(a.config.DelayMS)*time.Millisecond); err != nil {
				return all, err
			}
		}

		feedURL := a.config.URLFor(cat)
		logger.Info("[%s] 拉取 RSS: %s", a.config.Name, feedURL)

		body, err := platform.Get(ctx, a.httpClient, feedURL, nil)
		if err != nil {
			logger.Warn("[%s] %s 拉取失败: %v", a.config.Name, cat, err)
			errs = append(errs, fmt.Errorf("%s/%s: %w", a.config.Name, cat, err))
			continue
		}
		entries, err := platform.ParseFeed(body, a.config.Name, cat)
		if err != nil {
			logger.Warn("[%s] %s 解析失败: %v", a.config.Name, cat, err)
			errs = append(errs, fmt.Errorf("%s/%s: %w", a.config.Name, cat, err))
			continue
		}
		logger.Debug("[%s] %s 返回 %d 条", a.config.Name, cat, len(entries))
		all = append(all, entries...)
	}

	return all, errors.Join(errs...)
}

func init() {
	for name := range DefaultFeeds {
		name := name
		core.MustRegister(core.Provider{
			Name: name,
			New: func(cfg platform.Config) (platform.Platform, error) {
				c, _ := cfg.(*Config)
				if c == nil {
					c = DefaultConfig(name)
				}
				return NewAdapter(c)
			},
			DefaultConfig: func() platform.Config { return DefaultConfig(name) },
		})
	}
}
