package core

import (
	"context"

	"PaperSieve/internal/metrics"
	"PaperSieve/internal/models"
)

// RunWeekly 强制刷新语料，重排最近 WeeklyLookbackDays 天（full 时为全部）的论文，
// 并回填之前 skip/error 的论文
func (a *App) RunWeekly(ctx context.Context, full bool) (*models.RunSummary, error) {
	mode := "weekly"
	if full {
		mode = "weekly-full"
	}
	now := a.now()
	sum := a.newSummary(mode, now.Format(DateLayout))
	a.log.Info("%s 开始: run=%s", mode, sum.RunID)

	// 强制刷新失败是致命的，不使用旧快照
	snap, err := a.Corpus.GetCorpus(ctx, true)
	if err != nil {
		return a.finish(sum, nil, err)
	}

	cond := models.RecordFilter{}
	if !full {
		cond.DateFrom = now.AddDate(0, 0, -a.WeeklyLookbackDays).Format(DateLayout)
	}
	papers, err := a.Store.GetRecords(cond, a.Embedder.ModelName())
	if err != nil {
		return a.finish(sum, nil, err)
	}
	a.log.Info("%s: 共 %d 篇历史论文待重排", mode, len(papers))

	previous := make(map[string]models.ScoreMap, len(papers))
	dates := make(map[string]bool)
	var dateList []string
	for _, p := range papers {
		previous[p.Key()] = p.Score
		sum.Source(p.Source).Total++
		if p.HasAbstract() {
			sum.Source(p.Source).WithAbstract++
		}
		if p.RunDate != "" && !dates[p.RunDate] {
			dates[p.RunDate] = true
			dateList = append(dateList, p.RunDate)
		}
	}

	if err := a.embed(ctx, papers); err != nil {
		if ctx.Err() != nil {
			return a.finish(sum, nil, ctx.Err())
		}
		a.log.Warn("补算向量失败，没有向量的论文分数为 0: %v", err)
	}

	stop := metrics.Stage("rank")
	a.Ranker.Rank(papers, snap)
	stop()
	queued := a.Gate.Backfill(papers, previous)
	a.persist(papers, true)

	_, _, runErr := a.Enricher.Run(ctx, queued)
	a.persist(queued, false)

	countStatuses(sum, papers, queued)
	return a.finish(sum, dateList, runErr)
}
