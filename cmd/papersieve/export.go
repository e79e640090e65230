package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"PaperSieve/internal/core"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "导出某天已增强的论文到 jsonl / csv 或飞书多维表格",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		to, _ := cmd.Flags().GetString("to")
		srcFlag, _ := cmd.Flags().GetString("sources")

		if date == "" {
			date = time.Now().Format(core.DateLayout)
		}
		var sources []string
		for _, s := range strings.Split(srcFlag, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sources = append(sources, s)
			}
		}

		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signalContext()
		defer stop()

		switch to {
		case "feishu":
			url, err := app.ExportToFeiShuBitable(ctx, date, sources)
			if err != nil {
				return err
			}
			fmt.Println(url)
			return nil
		case "", "file":
		default:
			return fmt.Errorf("不支持的导出目标: %s", to)
		}

		if output == "" {
			output = fmt.Sprintf("papersieve_%s.%s", date, format)
		}
		n, err := app.ExportPapers(ctx, date, format, output, sources)
		if err != nil {
			return err
		}
		fmt.Printf("已导出 %d 篇论文到 %s\n", n, output)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("date", "", "运行日期 YYYY-MM-DD（默认今天）")
	exportCmd.Flags().StringP("format", "f", "jsonl", "jsonl 或 csv")
	exportCmd.Flags().StringP("output", "o", "", "输出文件路径")
	exportCmd.Flags().String("to", "", "导出目标，feishu 表示上传飞书多维表格")
	exportCmd.Flags().String("sources", "", "只导出这些来源，逗号分隔")
	rootCmd.AddCommand(exportCmd)
}
