package platform

import (
	"context"
	"time"

	"PaperSieve/internal/models"
)

// RawEntry feed 中的一条原始条目，字段保持 feed 的原样，由 feed 包负责规范化
type RawEntry struct {
	Source   string // 声明的来源，例如 arxiv / nature
	Category string // 抓取时使用的 category，例如 quant-ph / nphoton

	GUID        string
	Title       string
	Description string
	Link        string
	Authors     []string
	Published   *time.Time
	Tags        []string // feed 自带的分类标签

	// 出版商扩展字段（prism / dc）
	DOI             string
	Identifier      string
	PublicationName string
	DCSource        string
	Section         string
	PublicationDate string
}

// Platform 一个 feed 来源，所有来源（arxiv/nature/science/optica/aps）都需实现
type Platform interface {
	Name() string

	// Fetch 拉取给定 categories 的 feed；单个 category 失败时返回已拿到的条目和错误
	Fetch(ctx context.Context, categories []string) ([]RawEntry, error)

	GetConfig() Config
}

type Config interface {
	Validate() error
}

// NativeMeta 平台元数据 API 返回的补充信息
type NativeMeta struct {
	Abstract   string
	Categories []string
	Journal    string
	Authors    []string
}

// NativeLookup 来源自己的元数据 API。
// 找不到时返回 nil, nil；网络类可重试错误需要包装 models.ErrTransient
type NativeLookup interface {
	Name() string
	Lookup(ctx context.Context, p *models.PaperRecord) (*NativeMeta, error)
}

// BatchLookup 支持批量查询的元数据 API，key 为 PaperRecord.ID
type BatchLookup interface {
	NativeLookup
	BatchSize() int
	LookupBatch(ctx context.Context, papers []*models.PaperRecord) (map[string]*NativeMeta, error)
}
