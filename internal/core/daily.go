package core

import (
	"context"
	"fmt"
	"time"

	"PaperSieve/internal/dedup"
	"PaperSieve/internal/feed"
	"PaperSieve/internal/metrics"
	"PaperSieve/internal/models"
)

// RunDaily 抓取各来源的 feed，只处理去重索引里没有的论文。
// date 为空时使用今天；它决定 run_date 和输出文件名
func (a *App) RunDaily(ctx context.Context, date string) (*models.RunSummary, error) {
	if date == "" {
		date = a.now().Format(DateLayout)
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("日期格式应为 YYYY-MM-DD: %q", date)
	}
	sum := a.newSummary("daily", date)
	a.log.Info("daily 开始: date=%s, run=%s, 来源 %d 个", date, sum.RunID, len(a.Sources))

	// 去重库损坏时直接终止，避免重复付费
	seen, err := dedup.Load(ctx, a.Store)
	if err != nil {
		return a.finish(sum, nil, err)
	}
	snap, err := a.Corpus.GetCorpus(ctx, false)
	if err != nil {
		return a.finish(sum, nil, err)
	}

	var papers []*models.PaperRecord
	for _, src := range a.Sources {
		if ctx.Err() != nil {
			a.log.Warn("run 已取消，跳过剩余来源")
			break
		}
		batch, err := a.ingest(ctx, src, date, seen, sum.Source(src.Name))
		if err != nil {
			// 取消时丢弃这一批：没有提交去重，下次运行会重新处理
			a.log.Warn("[%s] 处理中断，%d 篇论文留待下次: %v", src.Name, len(batch), err)
			continue
		}
		papers = append(papers, batch...)
	}

	stop := metrics.Stage("rank")
	a.Ranker.Rank(papers, snap)
	stop()
	queued := a.Gate.Apply(papers)
	saved := a.persist(papers, true)

	_, _, runErr := a.Enricher.Run(ctx, queued)
	a.persist(queued, false)

	// 只提交已经落库的 id
	if err := commitSeen(context.WithoutCancel(ctx), seen, saved); err != nil {
		return a.finish(sum, nil, err)
	}

	countStatuses(sum, papers, queued)
	return a.finish(sum, []string{date}, runErr)
}

// ingest 单个来源：抓取 -> 规范化 -> 去重 -> 补摘要 -> 向量化。
// 单个 category 失败只记录在摘要里，返回的错误只有 ctx 取消
func (a *App) ingest(ctx context.Context, src Source, date string, seen dedup.Store, ss *models.SourceSummary) ([]*models.PaperRecord, error) {
	log := a.log
	defer metrics.Stage("ingest_" + src.Name)()

	entries, err := src.Platform.Fetch(ctx, src.Categories)
	if err != nil {
		log.Warn("[%s] 抓取部分失败: %v", src.Name, err)
		ss.Err = err.Error()
	}
	ss.Total = len(entries)

	records, dropped := feed.NormalizeAll(entries, date)
	ss.Malformed = len(dropped)
	metrics.EntriesTotal.WithLabelValues(src.Name, "malformed").Add(float64(len(dropped)))

	// 昂贵的步骤之前先去重
	var fresh []*models.PaperRecord
	for _, p := range records {
		if seen.IsNew(p.Source, p.ID) {
			fresh = append(fresh, p)
		}
	}
	metrics.EntriesTotal.WithLabelValues(src.Name, "new").Add(float64(len(fresh)))
	metrics.EntriesTotal.WithLabelValues(src.Name, "seen").Add(float64(len(records) - len(fresh)))
	ss.New = len(fresh)
	log.Info("[%s] %d 条 feed，%d 篇新论文，丢弃 %d 条", src.Name, len(entries), len(fresh), len(dropped))
	if len(fresh) == 0 {
		return nil, nil
	}

	stop := metrics.Stage("resolve")
	resolved, exhausted, err := a.Resolver.ResolveAll(ctx, fresh)
	stop()
	if err != nil {
		return fresh, err
	}
	log.Debug("[%s] 摘要补全: 补全 %d, 失败 %d", src.Name, resolved, exhausted)
	for _, p := range fresh {
		if p.HasAbstract() {
			ss.WithAbstract++
		}
	}

	if err := a.embed(ctx, fresh); err != nil {
		if ctx.Err() != nil {
			return fresh, ctx.Err()
		}
		log.Warn("[%s] 向量化失败，这些论文的分数为 0，等待 weekly 重排: %v", src.Name, err)
	}
	return fresh, nil
}

func commitSeen(ctx context.Context, seen dedup.Store, saved []*models.PaperRecord) error {
	bySource := make(map[string][]string)
	var order []string
	for _, p := range saved {
		if _, ok := bySource[p.Source]; !ok {
			order = append(order, p.Source)
		}
		bySource[p.Source] = append(bySource[p.Source], p.ID)
	}
	for _, src := range order {
		if err := seen.Commit(ctx, src, bySource[src]...); err != nil {
			return fmt.Errorf("[%s] %w", src, err)
		}
	}
	return nil
}

// countStatuses 统计各来源的终态；queued 是本次排队增强的论文
func countStatuses(sum *models.RunSummary, papers, queued []*models.PaperRecord) {
	for _, p := range queued {
		sum.Source(p.Source).Queued++
	}
	for _, p := range papers {
		ss := sum.Source(p.Source)
		switch p.EnrichStatus {
		case models.EnrichSkip:
			ss.Skip++
		case models.EnrichSuccess:
			ss.Success++
		case models.EnrichError:
			ss.Error++
		}
	}
}
