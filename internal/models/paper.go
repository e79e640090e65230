package models

import (
	"strings"
	"time"
)

// AbstractStatus 摘要的来源/解析状态，用于区分"没有摘要"和"还没尝试过"
type AbstractStatus string

const (
	AbstractNotAttempted AbstractStatus = "not_attempted"
	AbstractPresent      AbstractStatus = "present"   // feed 自带
	AbstractNative       AbstractStatus = "native"    // 平台自己的元数据 API
	AbstractFallback     AbstractStatus = "fallback"  // 通用搜索兜底
	AbstractExhausted    AbstractStatus = "exhausted" // 全部尝试失败
)

// EnrichStatus AI 增强的状态，queued 之外都是终态
type EnrichStatus string

const (
	EnrichPending EnrichStatus = ""
	EnrichQueued  EnrichStatus = "queued"
	EnrichSuccess EnrichStatus = "success"
	EnrichSkip    EnrichStatus = "skip"
	EnrichError   EnrichStatus = "error"
)

// Terminal 是否已经是终态
func (s EnrichStatus) Terminal() bool {
	return s == EnrichSuccess || s == EnrichSkip || s == EnrichError
}

// Enrichment LLM 生成的结构化总结
type Enrichment struct {
	TLDR       string `json:"tldr"`
	Motivation string `json:"motivation"`
	Method     string `json:"method"`
	Result     string `json:"result"`
	Conclusion string `json:"conclusion"`
}

// PaperRecord 统一的论文记录，(Source, ID) 是去重键，创建后不再变化
type PaperRecord struct {
	RowID int64 `json:"-"`

	Source     string    `json:"source"`
	ID         string    `json:"id"` // DOI 或平台原生 ID
	Journal    string    `json:"journal,omitempty"`
	Title      string    `json:"title"`
	Authors    []string  `json:"authors"`
	Published  time.Time `json:"published"`
	Abstract   string    `json:"summary"`
	Categories []string  `json:"category"`
	AbsURL     string    `json:"abs,omitempty"`
	PDFURL     string    `json:"pdf,omitempty"`

	AbstractStatus AbstractStatus `json:"abstract_status"`

	Score       ScoreMap `json:"score"`
	Recommended []string `json:"collection"`

	EnrichStatus EnrichStatus `json:"enrich_status"`
	Enrichment   *Enrichment  `json:"AI,omitempty"`
	EnrichError  string       `json:"enrich_error,omitempty"`

	RunDate   string    `json:"run_date"` // YYYY-MM-DD，决定输出文件
	Embedding []float32 `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Key 去重键
func (p *PaperRecord) Key() string {
	return p.Source + ":" + p.ID
}

// AuthorsCSV 返回以逗号分隔的作者名
func (p *PaperRecord) AuthorsCSV() string {
	return strings.Join(p.Authors, ", ")
}

// CategoriesCSV 返回以逗号分隔的类别
func (p *PaperRecord) CategoriesCSV() string {
	return strings.Join(p.Categories, ", ")
}

// HasAbstract 摘要是否非空
func (p *PaperRecord) HasAbstract() bool {
	return strings.TrimSpace(p.Abstract) != ""
}

// MergeCategories 把 cats 并入已有类别，保持顺序并去重
func (p *PaperRecord) MergeCategories(cats ...string) {
	seen := make(map[string]bool, len(p.Categories))
	for _, c := range p.Categories {
		seen[c] = true
	}
	for _, c := range cats {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		p.Categories = append(p.Categories, c)
	}
}
