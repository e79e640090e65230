package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
)

// Fake 确定性的向量服务（测试用）：Vectors 里有的文本直接返回，
// 其余文本按词哈希到 Dim 维的词袋向量
type Fake struct {
	mu      sync.Mutex
	Vectors map[string][]float32
	Err     error
	Calls   int
	Texts   []string
	dim     int
}

func NewFake(dim int) *Fake {
	return &Fake{Vectors: map[string][]float32{}, dim: dim}
}

func (f *Fake) ModelName() string { return "fake" }
func (f *Fake) Dim() int          { return f.dim }

func (f *Fake) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *Fake) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to embed")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		f.Texts = append(f.Texts, t)
		if v, ok := f.Vectors[t]; ok {
			out[i] = v
			continue
		}
		v := make([]float32, f.dim)
		for _, w := range strings.Fields(strings.ToLower(t)) {
			h := fnv.New32a()
			h.Write([]byte(w))
			v[h.Sum32()%uint32(f.dim)]++
		}
		out[i] = v
	}
	return out, nil
}
