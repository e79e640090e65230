package models

import "time"

// SourceSummary 单个来源的统计，仅用于展示
type SourceSummary struct {
	Source       string `json:"source"`
	Total        int    `json:"total_papers"`
	New          int    `json:"new_papers"`
	WithAbstract int    `json:"new_papers_with_abs"`
	Malformed    int    `json:"malformed"`
	Skip         int    `json:"skip"`
	Queued       int    `json:"queued"`
	Success      int    `json:"success"`
	Error        int    `json:"error_count"`
	OutputFile   string `json:"output_file,omitempty"`
	Err          string `json:"error,omitempty"`
}

// RunSummary 一次 run 的汇总，写入 update.json
type RunSummary struct {
	RunID      string           `json:"run_id"`
	Mode       string           `json:"mode"`
	Date       string           `json:"date"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"last_updated"`
	Sources    []*SourceSummary `json:"message"`
	Err        string           `json:"error,omitempty"` // 整个 run 失败的原因
}

// Source 获取或创建某个来源的统计
func (r *RunSummary) Source(name string) *SourceSummary {
	for _, s := range r.Sources {
		if s.Source == name {
			return s
		}
	}
	s := &SourceSummary{Source: name}
	r.Sources = append(r.Sources, s)
	return s
}

// Totals 所有来源的 new / with-abstract 合计
func (r *RunSummary) Totals() (newPapers, withAbstract int) {
	for _, s := range r.Sources {
		newPapers += s.New
		withAbstract += s.WithAbstract
	}
	return
}

// RecordFilter 存储层查询条件
type RecordFilter struct {
	Sources  []string
	DateFrom string // YYYY-MM-DD，按 run_date
	DateTo   string
	Statuses []EnrichStatus
	Limit    int
}
