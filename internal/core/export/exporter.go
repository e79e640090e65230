package export

import (
	"PaperSieve/internal/models"
)

// Exporter 导出器接口
type Exporter interface {
	// Export 导出论文到指定文件，已存在的文件会被整体替换
	Export(papers []*models.PaperRecord, outputPath string) error
}
