// Package main 是 papersieve 命令行入口：daily / weekly / export / corpus
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"PaperSieve/config"
	"PaperSieve/internal/core"
	"PaperSieve/pkg/logger"
)

// version 构建时通过 ldflags 注入
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "papersieve",
	Short:         "论文抓取、排序与增强流水线",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "配置文件路径或目录（默认 ./config、. 或 ~/.papersieve/config）")
	rootCmd.PersistentFlags().String("log-level", "", "覆盖 log.level")
}

// openApp 读取配置、初始化日志并组装 App
func openApp(cmd *cobra.Command) (*core.App, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Init(path)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		level = l
	}
	if cfg.Log.File != "" {
		logger.InitWithFile(level, cfg.Log.Color, cfg.Log.File)
	} else {
		logger.Init(level, cfg.Log.Color)
	}
	if p := config.GetConfigPath(); p != "" {
		logger.Debug("使用配置文件: %s", p)
	}

	app, err := core.NewApp(cfg.Options())
	if err != nil {
		return nil, fmt.Errorf("初始化失败: %w", err)
	}
	return app, nil
}

// signalContext SIGINT / SIGTERM 时取消，已完成的工作照常落盘
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}
