package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"PaperSieve/internal/models"
)

// Headers 表头，飞书多维表格直接用它作为字段名
var Headers = []string{
	"来源", "ID", "期刊", "标题", "作者", "摘要", "分类", "链接", "发布日期",
	"最高分", "推荐收藏夹", "TLDR", "动机", "方法", "结果", "结论", "增强状态",
}

type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

func (e *CSVExporter) Export(papers []*models.PaperRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("写入 BOM 失败: %w", err)
	}

	writer := csv.NewWriter(file)

	if err := writer.Write(Headers); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}

	for _, p := range papers {
		if err := writer.Write(Row(p)); err != nil {
			return fmt.Errorf("写入数据失败: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Row 一条记录对应的 CSV 行，顺序与 Headers 一致
func Row(p *models.PaperRecord) []string {
	var ai models.Enrichment
	if p.Enrichment != nil {
		ai = *p.Enrichment
	}
	link := p.AbsURL
	if link == "" {
		link = p.PDFURL
	}
	return []string{
		p.Source,
		p.ID,
		p.Journal,
		p.Title,
		strings.Join(p.Authors, "; "),
		truncate(p.Abstract, 500),
		strings.Join(p.Categories, "; "),
		link,
		formatTime(p.Published),
		fmt.Sprintf("%.2f", p.Score.Max()),
		strings.Join(p.Recommended, "; "),
		ai.TLDR,
		ai.Motivation,
		ai.Method,
		ai.Result,
		ai.Conclusion,
		string(p.EnrichStatus),
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
