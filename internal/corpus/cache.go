// Package corpus 维护参考库的向量快照：过期或强制时整体重建，其余时候复用上一次的快照。
package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	storage "PaperSieve/db"
	"PaperSieve/internal/embedding"
	"PaperSieve/internal/metrics"
	"PaperSieve/internal/models"
	"PaperSieve/pkg/logger"
)

type Config struct {
	Validity time.Duration `mapstructure:"validity" yaml:"validity"`
}

func DefaultConfig() Config {
	return Config{Validity: 7 * 24 * time.Hour}
}

type Cache struct {
	cfg      Config
	library  LibraryProvider
	embedder embedding.Service
	store    storage.CorpusStorage

	current atomic.Pointer[models.CorpusSnapshot]
	mu      sync.Mutex // 串行化加载与刷新
	loaded  bool
	now     func() time.Time
	log     *logger.Logger
}

func New(cfg Config, library LibraryProvider, embedder embedding.Service, store storage.CorpusStorage) *Cache {
	return &Cache{
		cfg:      cfg,
		library:  library,
		embedder: embedder,
		store:    store,
		now:      time.Now,
		log:      logger.WithPrefix("[corpus]"),
	}
}

// Current 当前快照，可能为 nil
func (c *Cache) Current() *models.CorpusSnapshot {
	return c.current.Load()
}

// usable 快照存在且与当前向量模型一致；换了模型的旧向量不可比较
func (c *Cache) usable(snap *models.CorpusSnapshot) bool {
	return snap != nil && snap.Model == c.embedder.ModelName()
}

func (c *Cache) fresh(snap *models.CorpusSnapshot) bool {
	return c.usable(snap) && snap.Age(c.now()) < c.cfg.Validity
}

// GetCorpus 冷启动、过期或 force 时重建快照。
// force 时刷新失败返回 models.ErrCorpusRefreshFailed；否则有可用旧快照就降级使用
func (c *Cache) GetCorpus(ctx context.Context, force bool) (*models.CorpusSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		snap, err := c.store.LoadCorpus(ctx)
		if err != nil {
			c.log.Warn("读取已保存的语料快照失败，将重建: %v", err)
		} else if snap != nil {
			c.current.Store(snap)
		}
		c.loaded = true
	}

	snap := c.current.Load()
	if !force && c.fresh(snap) {
		metrics.CorpusRefresh.WithLabelValues("cached").Inc()
		c.log.Debug("语料快照有效（%s 前刷新）", snap.Age(c.now()).Round(time.Minute))
		return snap, nil
	}

	next, err := c.rebuild(ctx)
	if err != nil {
		if !force && c.usable(snap) {
			metrics.CorpusRefresh.WithLabelValues("stale").Inc()
			c.log.Warn("语料刷新失败，继续使用旧快照（%s 前）: %v", snap.Age(c.now()).Round(time.Minute), err)
			return snap, nil
		}
		metrics.CorpusRefresh.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", models.ErrCorpusRefreshFailed, err)
	}

	c.current.Store(next)
	metrics.CorpusRefresh.WithLabelValues("refreshed").Inc()
	return next, nil
}

// rebuild 拉取全部 collection、逐条向量化并持久化；任一步失败都不会替换现有快照
func (c *Cache) rebuild(ctx context.Context) (*models.CorpusSnapshot, error) {
	defer metrics.Stage("corpus_refresh")()

	if c.library == nil {
		return nil, errors.New("参考库未配置")
	}
	cols, err := c.library.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取参考库失败: %w", err)
	}

	snap := &models.CorpusSnapshot{
		RefreshedAt: c.now().UTC(),
		Model:       c.embedder.ModelName(),
	}
	// 同一条目出现在多个 collection 时只向量化一次
	var texts []string
	textIdx := make(map[string]int)
	var itemIdx []int
	for _, col := range cols {
		snap.Collections = append(snap.Collections, col.Name)
		for _, it := range col.Items {
			snap.Items = append(snap.Items, models.CorpusItem{
				Collection: col.Name,
				ItemKey:    it.Key,
				Title:      it.Title,
				AddedAt:    it.AddedAt,
			})
			idx, ok := textIdx[it.Key]
			if !ok {
				idx = len(texts)
				textIdx[it.Key] = idx
				texts = append(texts, itemText(it))
			}
			itemIdx = append(itemIdx, idx)
		}
	}

	if len(texts) > 0 {
		vecs, err := c.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("参考库向量化失败: %w", err)
		}
		for i := range snap.Items {
			snap.Items[i].Embedding = vecs[itemIdx[i]]
		}
	}

	if err := c.store.ReplaceCorpus(ctx, snap); err != nil {
		return nil, fmt.Errorf("保存语料快照失败: %w", err)
	}
	c.log.Info("语料快照已重建: %d 个 collection, %d 个条目", len(snap.Collections), len(snap.Items))
	return snap, nil
}
