// Package gate 按 ScoreMap.max 决定哪些论文值得调用 LLM，是控制成本的唯一关口。
package gate

import (
	"fmt"
	"unicode/utf8"

	"PaperSieve/internal/metrics"
	"PaperSieve/internal/models"
	"PaperSieve/pkg/logger"
)

type Config struct {
	Threshold       float64 `mapstructure:"threshold" yaml:"threshold"`
	CostPer1KTokens float64 `mapstructure:"cost_per_1k_tokens" yaml:"cost_per_1k_tokens"`
}

func DefaultConfig() Config {
	return Config{Threshold: 3.6}
}

func (c Config) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("gate.threshold 不能为负数")
	}
	return nil
}

// Decision 单篇论文的闸门结果
type Decision = models.EnrichStatus

// Decide 纯函数：max >= threshold 排队，否则跳过
func Decide(sm models.ScoreMap, threshold float64) Decision {
	if sm.Max() >= threshold {
		return models.EnrichQueued
	}
	return models.EnrichSkip
}

type Gate struct {
	cfg Config
}

func New(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

func (g *Gate) Threshold() float64 { return g.cfg.Threshold }

// Apply daily 流程：每篇论文恰好判定一次，已成功增强的不会再排队。返回排队的论文
func (g *Gate) Apply(papers []*models.PaperRecord) []*models.PaperRecord {
	var queued []*models.PaperRecord
	for _, p := range papers {
		if p.EnrichStatus == models.EnrichSuccess && p.Enrichment != nil {
			continue
		}
		d := Decide(p.Score, g.cfg.Threshold)
		p.EnrichStatus = d
		if d == models.EnrichSkip {
			p.EnrichError = ""
		}
		metrics.GateDecisions.WithLabelValues(string(d)).Inc()
		if d == models.EnrichQueued {
			queued = append(queued, p)
		}
	}
	g.logCost(queued)
	return queued
}

// Backfill weekly 回填：只重新评估之前是 skip 或 error 的论文。
// previous 是重排之前的分数（key 为 PaperRecord.Key()）；skip 的论文只有分数变化后才会重新判定，
// error 的论文只要仍在阈值之上就重新排队
func (g *Gate) Backfill(papers []*models.PaperRecord, previous map[string]models.ScoreMap) []*models.PaperRecord {
	var queued []*models.PaperRecord
	for _, p := range papers {
		switch p.EnrichStatus {
		case models.EnrichSkip:
			if old, ok := previous[p.Key()]; ok && old.Equal(p.Score) {
				continue
			}
		case models.EnrichError, models.EnrichPending, models.EnrichQueued:
		default:
			continue
		}

		d := Decide(p.Score, g.cfg.Threshold)
		metrics.GateDecisions.WithLabelValues(string(d)).Inc()
		if d == models.EnrichQueued {
			p.EnrichStatus = d
			p.EnrichError = ""
			queued = append(queued, p)
		} else if p.EnrichStatus != models.EnrichError {
			// error 的论文降到阈值以下时保留 error 标记和原因
			p.EnrichStatus = models.EnrichSkip
		}
	}
	g.logCost(queued)
	return queued
}

// EstimateTokens 粗略估计 prompt token 数：字符数 / 4
func EstimateTokens(p *models.PaperRecord) int {
	chars := utf8.RuneCountInString(p.Title) + utf8.RuneCountInString(p.Abstract)
	return (chars + 3) / 4
}

func (g *Gate) logCost(queued []*models.PaperRecord) {
	if len(queued) == 0 {
		return
	}
	tokens := 0
	for _, p := range queued {
		tokens += EstimateTokens(p)
	}
	metrics.EstimatedTokens.Add(float64(tokens))
	if g.cfg.CostPer1KTokens > 0 {
		logger.Info("排队增强 %d 篇，预计 %d prompt tokens，约 %.4f", len(queued), tokens, float64(tokens)/1000*g.cfg.CostPer1KTokens)
	} else {
		logger.Info("排队增强 %d 篇，预计 %d prompt tokens", len(queued), tokens)
	}
}
