package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"market-sim/internal/app"
	"market-sim/internal/config"
	"market-sim/internal/log"
	"market-sim/internal/store"
)

func main() {
	var (
		configPath   string
		scenarioPath string
		runs         int
		serve        bool
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.StringVar(&scenarioPath, "scenario", "", "参与者名单文件，覆盖 scenario.path")
	flag.IntVar(&runs, "runs", 0, "启动批次的运行次数，覆盖 sweep.runs")
	flag.BoolVar(&serve, "serve", false, "批次结束后启动 API 服务，覆盖 server.enabled")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if scenarioPath != "" {
		cfg.Scenario.Path = scenarioPath
	}
	if runs > 0 {
		cfg.Sweep.Runs = runs
	}
	if serve {
		cfg.Server.Enabled = true
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(cfg, logger); err != nil {
		logger.Error("系统运行异常", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("系统已安全退出")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		return fmt.Errorf("初始化数据库失败: %w", err)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.New(cfg, logger, sqliteStore).Run(ctx)
}
