package db

import (
	"context"

	"PaperSieve/internal/models"
)

// PaperStorage 论文记录的持久化，(source, id) 唯一
type PaperStorage interface {
	Upsert(p *models.PaperRecord) (int64, error)

	// SaveEmbedding 只更新向量，不动其他字段
	SaveEmbedding(source, id, model string, vec []float32) error

	// GetRecords 按条件取记录，model 非空时同时带出该模型下的向量
	GetRecords(cond models.RecordFilter, model string) ([]*models.PaperRecord, error)

	CountRecords(cond models.RecordFilter) (int, error)

	// RunDates 有记录的 run_date 列表，升序
	RunDates(cond models.RecordFilter) ([]string, error)

	Close() error
}

// SeenStorage 去重索引，只追加不删除
type SeenStorage interface {
	// CheckIntegrity 数据损坏时返回 models.ErrDedupStoreCorrupted
	CheckIntegrity(ctx context.Context) error

	LoadSeen(ctx context.Context) (map[string]map[string]struct{}, error)

	CommitSeen(ctx context.Context, source string, ids []string) error
}

// CorpusStorage 参考语料快照，整体替换
type CorpusStorage interface {
	// LoadCorpus 没有快照时返回 nil, nil
	LoadCorpus(ctx context.Context) (*models.CorpusSnapshot, error)

	ReplaceCorpus(ctx context.Context, snap *models.CorpusSnapshot) error
}

// Store 三者合一，sqlite 实现同时满足
type Store interface {
	PaperStorage
	SeenStorage
	CorpusStorage
}
