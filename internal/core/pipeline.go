package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"PaperSieve/internal/core/export/jsonl"
	emb "PaperSieve/internal/embedding"
	"PaperSieve/internal/metrics"
	"PaperSieve/internal/models"
	"PaperSieve/internal/ranker"
	"PaperSieve/pkg/logger"
)

func (a *App) newSummary(mode, date string) *models.RunSummary {
	sum := &models.RunSummary{
		RunID:     uuid.NewString(),
		Mode:      mode,
		Date:      date,
		StartedAt: a.now().UTC(),
	}
	for _, src := range a.Sources {
		sum.Source(src.Name)
	}
	return sum
}

// embed 为没有向量的论文补算并保存向量。批量失败时逐篇重试，单篇失败不影响其他论文
func (a *App) embed(ctx context.Context, papers []*models.PaperRecord) error {
	defer metrics.Stage("embed")()

	n, err := emb.EmbedRecords(ctx, a.Embedder, papers)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		a.log.Warn("批量向量化失败，改为逐篇处理: %v", err)
		failed := 0
		for _, p := range papers {
			if len(p.Embedding) > 0 {
				continue
			}
			vec, perr := a.Embedder.EmbedQuery(ctx, emb.BuildEmbeddingText(p))
			if perr != nil {
				logger.Debug("向量生成失败 [%s]: %v", p.Key(), perr)
				failed++
				continue
			}
			p.Embedding = vec
			n++
		}
		if failed > 0 {
			return fmt.Errorf("%d 篇论文向量化失败: %w", failed, err)
		}
	}
	a.log.Debug("新计算向量 %d 个", n)
	return nil
}

// persist 逐条写入，返回写入成功的记录。withVec 时同时保存向量
func (a *App) persist(papers []*models.PaperRecord, withVec bool) []*models.PaperRecord {
	saved := make([]*models.PaperRecord, 0, len(papers))
	model := a.Embedder.ModelName()
	for _, p := range papers {
		if _, err := a.Store.Upsert(p); err != nil {
			a.log.Error("保存论文失败 [%s]: %v", p.Key(), err)
			continue
		}
		if withVec && len(p.Embedding) > 0 {
			if err := a.Store.SaveEmbedding(p.Source, p.ID, model, p.Embedding); err != nil {
				a.log.Warn("向量保存失败 [%s]: %v", p.Key(), err)
			}
		}
		saved = append(saved, p)
	}
	return saved
}

// finish 写出受影响日期的 jsonl、update.json、file-list.txt 和指标文件
func (a *App) finish(sum *models.RunSummary, dates []string, runErr error) (*models.RunSummary, error) {
	if len(dates) > 0 {
		files, err := a.RewriteOutputs(dates)
		if err != nil {
			a.log.Error("写出结果失败: %v", err)
			if runErr == nil {
				runErr = err
			}
		}
		for src, path := range files {
			sum.Source(src).OutputFile = filepath.Base(path)
		}
	}

	sum.FinishedAt = a.now().UTC()
	if runErr != nil {
		sum.Err = runErr.Error()
		a.log.Error("%s 失败: %v", sum.Mode, runErr)
	} else {
		newPapers, withAbs := sum.Totals()
		a.log.Info("%s 完成: 新论文 %d（有摘要 %d），耗时 %s", sum.Mode, newPapers, withAbs, sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond))
	}

	if err := a.writeSummary(sum); err != nil {
		a.log.Warn("写入 update.json 失败: %v", err)
	}
	if err := a.writeFileList(); err != nil {
		a.log.Warn("写入 file-list.txt 失败: %v", err)
	}
	if err := metrics.WriteTextfile(a.MetricsTextfile); err != nil {
		a.log.Warn("写入指标文件失败: %v", err)
	}
	return sum, runErr
}

// OutputPath 某天某来源的输出文件
func (a *App) OutputPath(date, source string) string {
	return filepath.Join(a.DataDir, fmt.Sprintf("%s_%s.jsonl", date, source))
}

// RewriteOutputs 按日期重新生成每个来源的 jsonl，记录按 max 分数降序。返回 来源 -> 文件路径
func (a *App) RewriteOutputs(dates []string) (map[string]string, error) {
	defer metrics.Stage("export")()

	files := make(map[string]string)
	exp := jsonl.NewJSONLExporter()
	for _, date := range dates {
		records, err := a.Store.GetRecords(models.RecordFilter{DateFrom: date, DateTo: date}, "")
		if err != nil {
			return files, fmt.Errorf("查询 %s 的记录失败: %w", date, err)
		}
		bySource := make(map[string][]*models.PaperRecord)
		for _, p := range records {
			bySource[p.Source] = append(bySource[p.Source], p)
		}
		for src, papers := range bySource {
			ranker.SortByScore(papers)
			path := a.OutputPath(date, src)
			if err := exp.Export(papers, path); err != nil {
				return files, fmt.Errorf("写出 %s 失败: %w", path, err)
			}
			files[src] = path
			a.log.Debug("写出 %s: %d 条", filepath.Base(path), len(papers))
		}
	}
	return files, nil
}

func (a *App) writeSummary(sum *models.RunSummary) error {
	if err := os.MkdirAll(a.cacheDir(), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(a.cacheDir(), "update.json"), data, 0644)
}

// writeFileList 列出数据目录下全部输出文件，按文件名排序
func (a *App) writeFileList() error {
	matches, err := filepath.Glob(filepath.Join(a.DataDir, "*.jsonl"))
	if err != nil {
		return err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)
	if err := os.MkdirAll(a.cacheDir(), 0755); err != nil {
		return err
	}
	content := strings.Join(names, "\n")
	if content != "" {
		content += "\n"
	}
	return os.WriteFile(filepath.Join(a.cacheDir(), "file-list.txt"), []byte(content), 0644)
}
