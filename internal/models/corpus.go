package models

import "time"

// CorpusItem 参考库中某个 collection 下的一条文献向量
type CorpusItem struct {
	Collection string    `json:"collection"`
	ItemKey    string    `json:"item_key"`
	Title      string    `json:"title"`
	Embedding  []float32 `json:"-"`
	AddedAt    time.Time `json:"added_at"`
}

// CorpusSnapshot 一次完整刷新得到的语料快照，整体替换，不做局部修改
type CorpusSnapshot struct {
	Collections []string // 包含没有可用条目的 collection
	Items       []CorpusItem
	RefreshedAt time.Time
	Model       string
}

// ByCollection 按 collection 分组，空 collection 也会出现在结果里
func (s *CorpusSnapshot) ByCollection() map[string][]CorpusItem {
	out := make(map[string][]CorpusItem, len(s.Collections))
	for _, c := range s.Collections {
		out[c] = nil
	}
	for _, it := range s.Items {
		out[it.Collection] = append(out[it.Collection], it)
	}
	return out
}

// Age 快照年龄
func (s *CorpusSnapshot) Age(now time.Time) time.Duration {
	if s == nil || s.RefreshedAt.IsZero() {
		return 0
	}
	return now.Sub(s.RefreshedAt)
}
