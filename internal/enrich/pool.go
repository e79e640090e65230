// Package enrich 对通过闸门的论文调用 LLM 生成结构化总结。
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"PaperSieve/internal/metrics"
	"PaperSieve/internal/models"
	"PaperSieve/pkg/logger"
)

type PoolConfig struct {
	Workers int
	Timeout time.Duration // 单篇论文的超时
}

// Result 一篇论文的增强结果，由 worker 返回，在汇合点统一写回记录
type Result struct {
	Paper      *models.PaperRecord
	Enrichment *models.Enrichment
	Err        error
}

// Pool 有界并发的增强阶段。worker 之间不共享可变状态，
// 只在 Run 返回前把结果写回各自的 PaperRecord
type Pool struct {
	cfg        PoolConfig
	summarizer Summarizer
	log        *logger.Logger
}

func NewPool(cfg PoolConfig, s Summarizer) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Pool{cfg: cfg, summarizer: s, log: logger.WithPrefix("[enrich]")}
}

// Run 处理 queued 中的全部论文，返回后每篇都有终态（success 或 error）。
// ctx 取消时不再派发新任务，未处理的论文标记为 error("cancelled")，并返回 ctx 的错误
func (p *Pool) Run(ctx context.Context, queued []*models.PaperRecord) (success, failed int, err error) {
	if len(queued) == 0 {
		return 0, 0, nil
	}
	defer metrics.Stage("enrich")()

	results := make([]*Result, len(queued))
	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Workers)

	for i, paper := range queued {
		// 派发之间检查取消，单次调用自身由超时约束
		if ctx.Err() != nil {
			break
		}
		i, paper := i, paper
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = p.process(ctx, paper)
			return nil
		})
	}
	g.Wait()

	for i, paper := range queued {
		r := results[i]
		switch {
		case r == nil:
			paper.EnrichStatus = models.EnrichError
			paper.EnrichError = "cancelled"
			failed++
		case r.Err != nil:
			paper.EnrichStatus = models.EnrichError
			paper.EnrichError = r.Err.Error()
			failed++
		default:
			paper.Enrichment = r.Enrichment
			paper.EnrichStatus = models.EnrichSuccess
			paper.EnrichError = ""
			success++
		}
		metrics.EnrichmentTotal.WithLabelValues(string(paper.EnrichStatus)).Inc()
	}

	p.log.Info("增强完成: 成功 %d, 失败 %d", success, failed)
	return success, failed, ctx.Err()
}

func (p *Pool) process(ctx context.Context, paper *models.PaperRecord) *Result {
	callCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	p.log.Debug("增强: %s", paper.Key())
	e, err := p.summarizer.Summarize(callCtx, paper)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w: 超时 (%s)", models.ErrEnrichmentFailed, p.cfg.Timeout)
		}
		p.log.Warn("增强失败 %s: %v", paper.Key(), err)
		return &Result{Paper: paper, Err: err}
	}
	return &Result{Paper: paper, Enrichment: e}
}
