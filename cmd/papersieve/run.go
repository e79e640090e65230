package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"PaperSieve/internal/core"
	"PaperSieve/internal/models"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "抓取当天的新论文，排序并对高分论文生成摘要",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		if date == "" {
			date = time.Now().Format(core.DateLayout)
		}

		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signalContext()
		defer stop()

		sum, err := app.RunDaily(ctx, date)
		printSummary(sum)
		return err
	},
}

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "刷新参考语料，对最近的论文重新打分并补做增强",
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")

		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signalContext()
		defer stop()

		sum, err := app.RunWeekly(ctx, full)
		printSummary(sum)
		return err
	},
}

func init() {
	dailyCmd.Flags().String("date", "", "运行日期 YYYY-MM-DD（默认今天）")
	weeklyCmd.Flags().Bool("full", false, "对全部历史记录重新打分")
	rootCmd.AddCommand(dailyCmd, weeklyCmd)
}

func printSummary(sum *models.RunSummary) {
	if sum == nil {
		return
	}
	fmt.Printf("run %s (%s %s) 用时 %s\n", sum.RunID, sum.Mode, sum.Date,
		sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "来源\t总数\t新增\t有摘要\t格式错误\t跳过\t排队\t成功\t失败\t")
	for _, s := range sum.Sources {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			s.Source, s.Total, s.New, s.WithAbstract, s.Malformed, s.Skip, s.Queued, s.Success, s.Error)
	}
	w.Flush()

	for _, s := range sum.Sources {
		if s.Err != "" {
			fmt.Printf("  %s: %s\n", s.Source, s.Err)
		}
	}
}
