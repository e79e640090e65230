package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"PaperSieve/internal/models"
)

// JSONLExporter 每行一条 PaperRecord，下游页面按行读取
type JSONLExporter struct{}

func NewJSONLExporter() *JSONLExporter {
	return &JSONLExporter{}
}

// Export 先写临时文件再 rename，读者不会看到写了一半的文件
func (e *JSONLExporter) Export(papers []*models.PaperRecord, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export_*.jsonl")
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := Write(tmp, papers); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("写入文件失败: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("替换文件失败: %w", err)
	}
	return nil
}

// Write 把记录逐行编码到 w
func Write(w io.Writer, papers []*models.PaperRecord) error {
	bw := bufio.NewWriter(w)
	encoder := json.NewEncoder(bw)
	encoder.SetEscapeHTML(false) // 不转义 HTML 字符

	for _, p := range papers {
		if err := encoder.Encode(p); err != nil {
			return fmt.Errorf("写入 JSON 失败 [%s]: %w", p.Key(), err)
		}
	}
	return bw.Flush()
}

// Read 读回 jsonl 文件，供 export 命令和测试使用
func Read(path string) ([]*models.PaperRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []*models.PaperRecord
	dec := json.NewDecoder(f)
	for {
		var p models.PaperRecord
		if err := dec.Decode(&p); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("解析 %s 失败: %w", path, err)
		}
		out = append(out, &p)
	}
	return out, nil
}
