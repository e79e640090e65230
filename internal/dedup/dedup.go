// Package dedup 记录每个来源已经处理过的论文 id，是避免重复付费的唯一关口。
package dedup

import (
	"context"
	"fmt"
	"sync"

	storage "PaperSieve/db"
	"PaperSieve/pkg/logger"
)

// Store 判断与提交已见 id。运行期间只增不减
type Store interface {
	IsNew(source, id string) bool
	Commit(ctx context.Context, source string, ids ...string) error
}

// Index 启动时一次性从持久层加载，之后读内存、写穿透到持久层
type Index struct {
	mu      sync.RWMutex
	seen    map[string]map[string]struct{}
	backend storage.SeenStorage
}

// Load 先做完整性检查再加载；检查失败直接返回 models.ErrDedupStoreCorrupted
func Load(ctx context.Context, backend storage.SeenStorage) (*Index, error) {
	if err := backend.CheckIntegrity(ctx); err != nil {
		return nil, err
	}
	seen, err := backend.LoadSeen(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, ids := range seen {
		total += len(ids)
	}
	logger.Debug("去重索引已加载: %d 个来源, %d 个 id", len(seen), total)
	return &Index{seen: seen, backend: backend}, nil
}

func (x *Index) IsNew(source, id string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.seen[source][id]
	return !ok
}

// Commit 先写持久层，成功后才更新内存
func (x *Index) Commit(ctx context.Context, source string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := x.backend.CommitSeen(ctx, source, ids); err != nil {
		return fmt.Errorf("提交去重 id 失败: %w", err)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.seen[source] == nil {
		x.seen[source] = make(map[string]struct{})
	}
	for _, id := range ids {
		x.seen[source][id] = struct{}{}
	}
	return nil
}

// Len 某个来源已见 id 数
func (x *Index) Len(source string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.seen[source])
}

// MemoryStore 纯内存实现，测试用
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]map[string]struct{}
	// Commits 记录 Commit 调用次数
	Commits int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]map[string]struct{})}
}

func (m *MemoryStore) IsNew(source, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[source][id]
	return !ok
}

func (m *MemoryStore) Commit(_ context.Context, source string, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commits++
	if m.seen[source] == nil {
		m.seen[source] = make(map[string]struct{})
	}
	for _, id := range ids {
		m.seen[source][id] = struct{}{}
	}
	return nil
}
