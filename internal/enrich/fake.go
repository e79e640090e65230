package enrich

import (
	"context"
	"sync"

	"PaperSieve/internal/models"
)

// FakeSummarizer 测试用，按论文 key 返回预设结果
type FakeSummarizer struct {
	mu     sync.Mutex
	Errs   map[string]error
	Block  bool // 阻塞直到 ctx 结束
	Called []string
}

func (f *FakeSummarizer) Summarize(ctx context.Context, p *models.PaperRecord) (*models.Enrichment, error) {
	f.mu.Lock()
	f.Called = append(f.Called, p.Key())
	err := f.Errs[p.Key()]
	f.mu.Unlock()

	if f.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &models.Enrichment{
		TLDR:       "tldr: " + p.Title,
		Motivation: "m",
		Method:     "me",
		Result:     "r",
		Conclusion: "c",
	}, nil
}

func (f *FakeSummarizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Called)
}
