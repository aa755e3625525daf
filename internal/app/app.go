package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"market-sim/internal/api"
	"market-sim/internal/config"
	"market-sim/internal/log"
	"market-sim/internal/report"
	"market-sim/internal/scenario"
	"market-sim/internal/store"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 先执行启动批次，服务开启时再阻塞提供接口直到 ctx 结束。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("市场模拟已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.Int("sweep_runs", a.cfg.Sweep.Runs),
		zap.Bool("journal", a.cfg.Journal.Enabled),
		zap.Bool("server", a.cfg.Server.Enabled),
	)

	orch, err := newOrchestrator(orchestratorConfig{
		indicator: a.cfg.Indicator,
		journal:   a.cfg.Journal,
	}, a.logger, a.store)
	if err != nil {
		return err
	}

	summaries, err := a.runSweep(ctx, orch)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			a.logger.Info("系统收到退出信号，批量运行已停止")
			return nil
		}
		return fmt.Errorf("批量运行失败: %w", err)
	}
	a.logSweep(summaries)

	if !a.cfg.Server.Enabled {
		return nil
	}

	srv, err := api.NewServer(a.cfg.Server, orch, orch.Runs(), orch.Monitor(), log.Component(a.logger, "api"))
	if err != nil {
		return fmt.Errorf("初始化 API 服务失败: %w", err)
	}
	if err := srv.Serve(ctx); err != nil {
		return err
	}
	a.logger.Info("系统收到退出信号，正在停止")
	return nil
}

func (a *App) runSweep(ctx context.Context, orch *orchestrator) ([]report.Summary, error) {
	if path := a.cfg.Scenario.Path; path != "" {
		sc, err := scenario.Load(path)
		if err != nil {
			return nil, err
		}
		a.logger.Info("使用参与者名单运行", zap.String("path", path), zap.String("label", sc.Label))
		return orch.sweep(ctx, a.cfg.Sweep.Runs, a.cfg.Sweep.Parallelism, sc.Seed,
			func(ctx context.Context, seed uint64) (report.Summary, error) {
				return orch.RunScenario(ctx, sc, seed)
			})
	}

	label := a.cfg.App.Environment
	return orch.sweep(ctx, a.cfg.Sweep.Runs, a.cfg.Sweep.Parallelism, a.cfg.Market.Seed,
		func(ctx context.Context, seed uint64) (report.Summary, error) {
			return orch.Run(ctx, a.cfg.Market.Plan(label, seed))
		})
}

func (a *App) logSweep(summaries []report.Summary) {
	if len(summaries) == 0 {
		return
	}

	var trades, rounds int
	conserved := true
	for _, s := range summaries {
		trades += s.Stats.Trades
		rounds += s.Stats.Rounds
		conserved = conserved && s.Conserved
	}

	rate := 0.0
	if rounds > 0 {
		rate = float64(trades) / float64(rounds)
	}
	a.logger.Info("批量运行完成",
		zap.Int("runs", len(summaries)),
		zap.Int("rounds", rounds),
		zap.Int("trades", trades),
		zap.Float64("acceptance_rate", rate),
		zap.Bool("conserved", conserved),
	)
}
