package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/embedding/openai"

	"PaperSieve/internal/models"
	"PaperSieve/pkg/logger"
)

type EmbedderConfig struct {
	BaseURL   string `mapstructure:"baseurl" yaml:"baseurl"`
	APIKey    string `mapstructure:"apikey" yaml:"apikey"`
	ModelName string `mapstructure:"model" yaml:"model"`
	Dim       int    `mapstructure:"dim" yaml:"dim"`
	BatchSize int    `mapstructure:"batch_size" yaml:"batch_size"`
}

// Service 论文和参考库条目使用同一个 Service，向量才可比较
type Service interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch 返回的向量与 texts 一一对应
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	Dim() int
}

type openaiAdapter struct {
	cfg   EmbedderConfig
	inner *openai.Embedder
}

func New(cfg EmbedderConfig) (Service, error) {
	if cfg.ModelName == "" {
		cfg.ModelName = "text-embedding-3-small"
	}
	if cfg.Dim == 0 {
		cfg.Dim = 1536
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}

	if cfg.APIKey == "" {
		return &noopService{cfg: cfg}, nil
	}

	inner, err := openai.NewEmbedder(context.Background(), &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.ModelName,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建向量服务失败: %w", err)
	}
	return &openaiAdapter{cfg: cfg, inner: inner}, nil
}

func (a *openaiAdapter) ModelName() string { return a.cfg.ModelName }
func (a *openaiAdapter) Dim() int          { return a.cfg.Dim }

func (a *openaiAdapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch 按 BatchSize 分批请求，空文本直接报错以保证下标对齐
func (a *openaiAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to embed")
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("text %d is empty", i)
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += a.cfg.BatchSize {
		end := min(start+a.cfg.BatchSize, len(texts))
		vecs64, err := a.inner.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d failed: %w", start, end, err)
		}
		if len(vecs64) != end-start {
			return nil, fmt.Errorf("embedding batch %d-%d: expected %d vectors, got %d", start, end, end-start, len(vecs64))
		}
		for _, v := range vecs64 {
			out = append(out, toFloat32(v))
		}
		logger.Debug("向量化批次完成: %d-%d/%d", start, end, len(texts))
	}
	return out, nil
}

// noopService 空实现，用于没有配置 APIKey 时
type noopService struct {
	cfg EmbedderConfig
}

func (n *noopService) ModelName() string { return n.cfg.ModelName }
func (n *noopService) Dim() int          { return n.cfg.Dim }
func (n *noopService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedder not configured (missing APIKey)")
}
func (n *noopService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedder not configured (missing APIKey)")
}

// toFloat32 转换 float64 到 float32（SQLite BLOB 存储用）
func toFloat32(v []float64) []float32 {
	ret := make([]float32, len(v))
	for i, val := range v {
		ret[i] = float32(val)
	}
	return ret
}

// BuildEmbeddingText 生成用于向量化的文本（标题 + 摘要）；没有摘要时只用标题
func BuildEmbeddingText(p *models.PaperRecord) string {
	title := strings.TrimSpace(p.Title)
	abs := strings.TrimSpace(p.Abstract)
	if abs == "" {
		return title
	}
	return fmt.Sprintf("%s\n\n%s", title, abs)
}

// EmbedRecords 为还没有向量的记录生成向量，返回新生成的数量
func EmbedRecords(ctx context.Context, svc Service, papers []*models.PaperRecord) (int, error) {
	var todo []*models.PaperRecord
	var texts []string
	for _, p := range papers {
		if len(p.Embedding) > 0 {
			continue
		}
		todo = append(todo, p)
		texts = append(texts, BuildEmbeddingText(p))
	}
	if len(todo) == 0 {
		return 0, nil
	}

	vecs, err := svc.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	for i, p := range todo {
		p.Embedding = vecs[i]
	}
	return len(todo), nil
}
