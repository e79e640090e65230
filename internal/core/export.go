package core

import (
	"context"
	"fmt"
	"os"

	exporter "PaperSieve/internal/core/export"
	csv "PaperSieve/internal/core/export/csv"
	"PaperSieve/internal/core/export/jsonl"
	"PaperSieve/internal/metrics"
	"PaperSieve/internal/models"
	"PaperSieve/internal/ranker"
	"PaperSieve/pkg/logger"
	feishu "PaperSieve/pkg/upload/feishu"
)

func newExporter(format string) (exporter.Exporter, error) {
	switch format {
	case "csv":
		return csv.NewCSVExporter(), nil
	case "jsonl", "":
		return jsonl.NewJSONLExporter(), nil
	default:
		return nil, fmt.Errorf("不支持的导出格式: %s", format)
	}
}

// recordsOf 某天的全部记录，按 max 分数降序；recommendedOnly 时只保留增强成功的
func (a *App) recordsOf(date string, sources []string, recommendedOnly bool) ([]*models.PaperRecord, error) {
	cond := models.RecordFilter{DateFrom: date, DateTo: date, Sources: sources}
	if recommendedOnly {
		cond.Statuses = []models.EnrichStatus{models.EnrichSuccess}
	}
	papers, err := a.Store.GetRecords(cond, "")
	if err != nil {
		return nil, fmt.Errorf("查询论文失败: %w", err)
	}
	if len(papers) == 0 {
		return nil, fmt.Errorf("%s 没有符合条件的论文", date)
	}
	ranker.SortByScore(papers)
	return papers, nil
}

// ExportPapers 导出某天的论文到文件
func (a *App) ExportPapers(ctx context.Context, date, format, outputPath string, sources []string) (int, error) {
	logger.Info("开始导出论文: 日期=%s, 格式=%s, 输出=%s", date, format, outputPath)

	exp, err := newExporter(format)
	if err != nil {
		return 0, err
	}
	papers, err := a.recordsOf(date, sources, false)
	if err != nil {
		return 0, err
	}
	if err := exp.Export(papers, outputPath); err != nil {
		return 0, fmt.Errorf("导出失败: %w", err)
	}

	logger.Info("导出成功: %d 篇论文 -> %s", len(papers), outputPath)
	return len(papers), nil
}

// ExportToFeiShuBitable 把某天增强成功的论文上传为飞书多维表格，返回表格 URL
func (a *App) ExportToFeiShuBitable(ctx context.Context, date string, sources []string) (string, error) {
	logger.Info("开始导出到 FeiShu: %s", date)

	if a.FeiShu.AppID == "" || a.FeiShu.AppSecret == "" {
		return "", fmt.Errorf("feishu 配置不完整，请在配置文件中设置 feishu.app_id 和 feishu.app_secret")
	}

	papers, err := a.recordsOf(date, sources, true)
	if err != nil {
		return "", err
	}

	tmpFile, err := os.CreateTemp("", "papersieve_*.csv")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	if err := csv.NewCSVExporter().Export(papers, tmpPath); err != nil {
		return "", fmt.Errorf("导出 CSV 失败: %w", err)
	}

	fileName := a.FeiShu.FileName
	if fileName == "" {
		fileName = "PaperSieve " + date
	}
	url, err := feishu.NewClient(a.FeiShu.AppID, a.FeiShu.AppSecret, fileName).
		UploadCSVToBitable(ctx, tmpPath, date)
	if err != nil {
		return "", fmt.Errorf("上传到飞书失败: %w", err)
	}

	logger.Info("导出到飞书成功: %d 篇论文, url=%s", len(papers), url)
	return url, nil
}

// CorpusSnapshot 返回语料快照；refresh 时强制重建
func (a *App) CorpusSnapshot(ctx context.Context, refresh bool) (*models.CorpusSnapshot, error) {
	snap, err := a.Corpus.GetCorpus(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if err := metrics.WriteTextfile(a.MetricsTextfile); err != nil {
		logger.Warn("写入指标文件失败: %v", err)
	}
	return snap, nil
}
