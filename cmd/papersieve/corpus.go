package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "查看参考语料（Zotero 收藏夹）快照",
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")

		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signalContext()
		defer stop()

		snap, err := app.CorpusSnapshot(ctx, refresh)
		if err != nil {
			return err
		}

		fmt.Printf("快照时间 %s（%s 前），embedding 模型 %s\n",
			snap.RefreshedAt.Local().Format(time.DateTime),
			time.Since(snap.RefreshedAt).Round(time.Minute), snap.Model)

		groups := snap.ByCollection()
		names := make([]string, 0, len(groups))
		for name := range groups {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-30s %d\n", name, len(groups[name]))
		}
		return nil
	},
}

func init() {
	corpusCmd.Flags().Bool("refresh", false, "忽略有效期，强制从 Zotero 重建")
	rootCmd.AddCommand(corpusCmd)
}
