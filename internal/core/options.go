package core

import (
	"fmt"
	"time"

	"PaperSieve/internal/corpus"
	emb "PaperSieve/internal/embedding"
	"PaperSieve/internal/enrich"
	"PaperSieve/internal/gate"
	"PaperSieve/internal/platform"
	"PaperSieve/internal/ranker"
	"PaperSieve/internal/resolver"
	"PaperSieve/internal/websearch"
)

// SourceSpec 一个 feed 来源及要抓取的 categories。
// Native 是摘要补全使用的元数据 API，留空时按 DefaultNatives，"none" 表示不用
type SourceSpec struct {
	Name       string   `mapstructure:"name" yaml:"name"`
	Categories []string `mapstructure:"categories" yaml:"categories"`
	Native     string   `mapstructure:"native" yaml:"native,omitempty"`
}

// DefaultNatives 来源 -> 元数据 API
var DefaultNatives = map[string]string{
	"arxiv":   "arxiv",
	"nature":  "springer",
	"science": "semantic",
	"optica":  "semantic",
	"aps":     "semantic",
}

func (s SourceSpec) NativeName() string {
	if s.Native == "none" {
		return ""
	}
	if s.Native != "" {
		return s.Native
	}
	return DefaultNatives[s.Name]
}

type ZoteroConfig struct {
	UserID      string   `mapstructure:"user_id" yaml:"user_id"`
	APIKey      string   `mapstructure:"api_key" yaml:"api_key"`
	LibraryType string   `mapstructure:"library_type" yaml:"library_type"`
	ItemTypes   []string `mapstructure:"item_types" yaml:"item_types"`
}

func (z ZoteroConfig) Configured() bool {
	return z.UserID != "" && z.APIKey != ""
}

type FeiShuConfig struct {
	AppID     string `mapstructure:"app_id" yaml:"app_id"`
	AppSecret string `mapstructure:"app_secret" yaml:"app_secret"`
	FileName  string `mapstructure:"file_name" yaml:"file_name"`
}

// PipelineConfig 并发只有 workers 一个旋钮，只作用于增强阶段
type PipelineConfig struct {
	Workers            int           `mapstructure:"workers" yaml:"workers"`
	EnrichTimeout      time.Duration `mapstructure:"enrich_timeout" yaml:"enrich_timeout"`
	WeeklyLookbackDays int           `mapstructure:"weekly_lookback_days" yaml:"weekly_lookback_days"`
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Workers:            1,
		EnrichTimeout:      120 * time.Second,
		WeeklyLookbackDays: 7,
	}
}

func (c PipelineConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("pipeline.workers 必须 >= 1，当前 %d", c.Workers)
	}
	if c.EnrichTimeout <= 0 {
		return fmt.Errorf("pipeline.enrich_timeout 必须大于 0")
	}
	if c.WeeklyLookbackDays < 1 {
		return fmt.Errorf("pipeline.weekly_lookback_days 必须 >= 1")
	}
	return nil
}

// Options NewApp 需要的全部配置，由 config 包组装
type Options struct {
	DataDir      string
	DatabasePath string

	Sources   []SourceSpec
	Platforms map[string]platform.Config // 按来源名
	Lookups   map[string]platform.Config // 按元数据 API 名

	WebSearch websearch.Config
	Resolver  resolver.Config
	Embedder  emb.EmbedderConfig
	Zotero    ZoteroConfig
	Corpus    corpus.Config
	Ranker    ranker.Config
	Gate      gate.Config
	LLM       enrich.LLMConfig
	Pipeline  PipelineConfig
	FeiShu    FeiShuConfig

	MetricsTextfile string
}
