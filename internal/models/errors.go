package models

import "errors"

// 流水线错误分类，统一用 errors.Is 判断
var (
	// ErrMalformedEntry feed 条目缺少标题或 ID，直接丢弃
	ErrMalformedEntry = errors.New("malformed feed entry")

	// ErrAbstractUnavailable 摘要解析失败，记录继续以空摘要流转
	ErrAbstractUnavailable = errors.New("abstract unavailable")

	// ErrCorpusRefreshFailed 强制刷新失败时致命，否则回退到旧缓存
	ErrCorpusRefreshFailed = errors.New("reference corpus refresh failed")

	// ErrEnrichmentFailed AI 增强失败，标记 error，等下一次 weekly 回填
	ErrEnrichmentFailed = errors.New("enrichment failed")

	// ErrDedupStoreCorrupted 去重库不可读，整个 run 终止，避免重复计费
	ErrDedupStoreCorrupted = errors.New("dedup store corrupted")

	// ErrTransient 可重试的外部调用失败（网络错误、429、5xx）
	ErrTransient = errors.New("transient upstream failure")
)
