package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"PaperSieve/internal/models"
	"PaperSieve/pkg/logger"
)

type LLMConfig struct {
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	ModelName   string  `mapstructure:"model" yaml:"model"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	Language    string  `mapstructure:"language" yaml:"language"`
	Temperature float32 `mapstructure:"temperature" yaml:"temperature"`
}

func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		ModelName:   "gpt-4o-mini",
		Language:    "Chinese",
		Temperature: 0.3,
	}
}

// ErrNotConfigured 没有配置 LLM API Key
var ErrNotConfigured = errors.New("LLM not configured (missing api_key)")

// Summarizer 把一篇论文总结为结构化的 Enrichment
type Summarizer interface {
	Summarize(ctx context.Context, p *models.PaperRecord) (*models.Enrichment, error)
}

// Generator ChatModel 中本包用到的部分
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

type llmSummarizer struct {
	model    Generator
	language string
}

// NewSummarizer 基于 OpenAI 兼容接口的 ChatModel
func NewSummarizer(cfg LLMConfig) (Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	temp := cfg.Temperature
	cm, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		Model:       cfg.ModelName,
		BaseURL:     cfg.BaseURL,
		Temperature: &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 LLM 客户端失败: %w", err)
	}
	return NewSummarizerWithModel(cm, cfg.Language), nil
}

// NewSummarizerWithModel 使用任意 eino ChatModel（测试时注入假模型）
func NewSummarizerWithModel(cm Generator, language string) Summarizer {
	if language == "" {
		language = "Chinese"
	}
	return &llmSummarizer{model: cm, language: language}
}

func (s *llmSummarizer) Summarize(ctx context.Context, p *models.PaperRecord) (*models.Enrichment, error) {
	content := strings.TrimSpace(p.Abstract)
	if content == "" {
		content = strings.TrimSpace(p.Title)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: %s 没有标题和摘要", models.ErrEnrichmentFailed, p.Key())
	}

	messages := []*schema.Message{
		{
			Role:    schema.System,
			Content: systemPrompt,
		},
		{
			Role:    schema.User,
			Content: buildPrompt(s.language, p.Title, content),
		},
	}

	resp, err := s.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: LLM 生成失败: %v", models.ErrEnrichmentFailed, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("%w: LLM 返回空响应", models.ErrEnrichmentFailed)
	}

	e, err := parseEnrichment(resp.Content)
	if err != nil {
		logger.Debug("无法解析的 LLM 响应: %.200s", resp.Content)
		return nil, fmt.Errorf("%w: %v", models.ErrEnrichmentFailed, err)
	}
	return e, nil
}

const systemPrompt = `You are a research assistant who writes precise structured summaries of physics and engineering papers for a busy researcher.

Respond with a single JSON object and nothing else:
{
  "tldr": "one sentence",
  "motivation": "why the work was done",
  "method": "what was done and how",
  "result": "key quantitative or qualitative findings",
  "conclusion": "what it means for the field"
}`

func buildPrompt(language, title, content string) string {
	return fmt.Sprintf(`Summarize the following paper. Write every field in %s. Keep technical terms, symbols and numbers exact.

Title: %s

Content:
%s`, language, title, content)
}

// parseEnrichment 从可能带 markdown 代码块或多余文字的响应中还原 JSON
func parseEnrichment(content string) (*models.Enrichment, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return nil, fmt.Errorf("响应中没有 JSON 对象")
	}
	raw := content[startIdx : endIdx+1]

	var e models.Enrichment
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		// LaTeX 反斜杠（\alpha）常常没有转义
		fixed := strings.ReplaceAll(raw, `\`, `\\`)
		if err2 := json.Unmarshal([]byte(fixed), &e); err2 != nil {
			return nil, fmt.Errorf("解析 JSON 失败: %w", err)
		}
	}
	if strings.TrimSpace(e.TLDR) == "" {
		return nil, fmt.Errorf("响应缺少 tldr")
	}
	return &e, nil
}

// Disabled 没有配置 LLM 时使用：排队的论文全部记为 error，配置好之后由 weekly 回填
func Disabled(reason error) Summarizer {
	return disabled{err: reason}
}

type disabled struct{ err error }

func (d disabled) Summarize(context.Context, *models.PaperRecord) (*models.Enrichment, error) {
	return nil, fmt.Errorf("%w: %v", models.ErrEnrichmentFailed, d.err)
}
