package websearch

import (
	"context"
	"sync"
)

// MockProvider 测试替身：按调用顺序返回预设的结果或错误，并记录收到的查询
type MockProvider struct {
	mu      sync.Mutex
	Replies []MockReply
	Queries []string
}

// MockReply 一次调用的返回；Replies 用完后重复最后一个
type MockReply struct {
	Results []Result
	Err     error
}

func NewMockProvider(replies ...MockReply) *MockProvider {
	return &MockProvider{Replies: replies}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.Queries = append(m.Queries, query)
	if len(m.Replies) == 0 {
		return nil, ErrNoResults
	}
	i := min(len(m.Queries)-1, len(m.Replies)-1)
	r := m.Replies[i]
	if r.Err != nil {
		return nil, r.Err
	}
	if maxResults > 0 && len(r.Results) > maxResults {
		return r.Results[:maxResults], nil
	}
	return r.Results, nil
}

// Calls 已收到的查询次数
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}
