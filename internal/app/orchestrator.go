package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"market-sim/internal/api"
	"market-sim/internal/config"
	"market-sim/internal/indicator"
	"market-sim/internal/journal"
	"market-sim/internal/log"
	"market-sim/internal/monitor"
	"market-sim/internal/report"
	"market-sim/internal/scenario"
	"market-sim/internal/simulation"
	"market-sim/internal/store"
)

type orchestrator struct {
	calc    *indicator.Calculator
	runs    *report.Repository
	monitor *monitor.Service
	journal config.JournalConfig
	logger  *zap.Logger

	newID func() string
}

var _ api.Runner = (*orchestrator)(nil)

type orchestratorConfig struct {
	indicator config.IndicatorConfig
	journal   config.JournalConfig
}

// runRequest 描述一次待执行的运行：标签、种子以及已校验的配置与参与者。
type runRequest struct {
	label  string
	seed   uint64
	cfg    simulation.Config
	pop    *simulation.Population
	source simulation.Source
}

func newOrchestrator(cfg orchestratorConfig, logger *zap.Logger, store *store.Store) (*orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	runs, err := report.NewRepository(store, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化运行记录失败: %w", err)
	}

	monitorSvc, err := monitor.NewService(store, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化监控服务失败: %w", err)
	}

	return &orchestrator{
		calc:    indicator.NewCalculator(cfg.indicator.Window),
		runs:    runs,
		monitor: monitorSvc,
		journal: cfg.journal,
		logger:  log.Component(logger, "orchestrator"),
		newID:   uuid.NewString,
	}, nil
}

func (o *orchestrator) Monitor() *monitor.Service {
	return o.monitor
}

func (o *orchestrator) Runs() *report.Repository {
	return o.runs
}

// Run 按运行参数生成参与者并执行一次模拟。
func (o *orchestrator) Run(ctx context.Context, plan simulation.Plan, observers ...simulation.Observer) (report.Summary, error) {
	cfg, pop, err := plan.Build()
	if err != nil {
		return report.Summary{}, err
	}
	return o.execute(ctx, runRequest{
		label:  plan.Label,
		seed:   plan.Seed,
		cfg:    cfg,
		pop:    pop,
		source: simulation.NewSource(plan.Seed),
	}, observers...)
}

// RunScenario 以显式参与者名单执行一次模拟，seed 覆盖名单文件中的种子。
func (o *orchestrator) RunScenario(ctx context.Context, sc scenario.Scenario, seed uint64, observers ...simulation.Observer) (report.Summary, error) {
	cfg, pop, err := sc.Build()
	if err != nil {
		return report.Summary{}, err
	}
	return o.execute(ctx, runRequest{
		label:  sc.Label,
		seed:   seed,
		cfg:    cfg,
		pop:    pop,
		source: simulation.NewSource(seed),
	}, observers...)
}

func (o *orchestrator) execute(ctx context.Context, req runRequest, observers ...simulation.Observer) (report.Summary, error) {
	runID := o.newID()
	logger := o.logger.With(zap.String("run_id", runID), zap.String("label", req.label), zap.Uint64("seed", req.seed))
	startedAt := time.Now()

	o.monitor.RecordRunStarted(ctx, runID, monitor.RunStartedPayload{
		Label:   req.label,
		Seed:    req.seed,
		Rounds:  req.cfg.Rounds,
		Price:   req.cfg.Price.String(),
		Buyers:  len(req.pop.Buyers()),
		Sellers: len(req.pop.Sellers()),
	})

	var journalWriter *journal.Writer
	if o.journal.Enabled {
		w, err := journal.Create(o.journal.Dir, runID)
		if err != nil {
			o.monitor.RecordRunFailed(ctx, runID, "创建运行日志失败", err, 0, nil)
			return report.Summary{}, err
		}
		journalWriter = w
		observers = append(append([]simulation.Observer(nil), observers...), w)
	}

	engine, err := simulation.NewEngine(req.cfg, req.source, logger, observers...)
	if err != nil {
		if journalWriter != nil {
			_ = journalWriter.Close()
		}
		o.monitor.RecordRunFailed(ctx, runID, "创建撮合引擎失败", err, 0, nil)
		return report.Summary{}, err
	}

	result, runErr := engine.Run(ctx, req.pop)
	if journalWriter != nil {
		if closeErr := journalWriter.Close(); closeErr != nil {
			runErr = errors.Join(runErr, closeErr)
		}
	}
	if runErr != nil {
		o.monitor.RecordRunFailed(ctx, runID, "模拟运行中止", runErr, result.Rounds, map[string]interface{}{
			"trades": result.Trades,
		})
		logger.Warn("模拟运行中止", zap.Int("rounds", result.Rounds), zap.Error(runErr))
		return report.Summary{}, fmt.Errorf("运行 %s 中止: %w", runID, runErr)
	}

	stats, err := o.calc.Compute(result.Accepted)
	if err != nil {
		o.monitor.RecordRunFailed(ctx, runID, "成交率统计失败", err, result.Rounds, nil)
		return report.Summary{}, err
	}

	finishedAt := time.Now()
	summary := report.NewSummary(runID, req.label, req.seed, req.cfg, result, stats, startedAt, finishedAt)
	if err := o.runs.Save(ctx, summary); err != nil {
		o.monitor.RecordRunFailed(ctx, runID, "保存运行记录失败", err, result.Rounds, nil)
		return report.Summary{}, err
	}
	o.monitor.RecordRunCompleted(ctx, runID, stats, result, finishedAt.Sub(startedAt))

	fields := []zap.Field{
		zap.Int("rounds", result.Rounds),
		zap.Int("trades", result.Trades),
		zap.Float64("acceptance_rate", stats.AcceptanceRate),
		zap.Float64("rolling_rate", stats.RollingRate),
		zap.Bool("conserved", summary.Conserved),
	}
	if journalWriter != nil {
		fields = append(fields, zap.String("journal", journalWriter.Path()))
	}
	logger.Info("模拟运行完成", fields...)

	return summary, nil
}

// sweep 以 parallelism 为上限并发执行 runs 次相互独立的运行，第 i 次运行的种子为 seed+i。
// 任一运行失败时取消其余运行；返回的摘要按运行序号排列。
func (o *orchestrator) sweep(ctx context.Context, runs, parallelism int, seed uint64, run func(ctx context.Context, seed uint64) (report.Summary, error)) ([]report.Summary, error) {
	if runs <= 0 {
		return nil, nil
	}
	if parallelism <= 0 {
		parallelism = 1
	}

	summaries := make([]report.Summary, runs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := 0; i < runs; i++ {
		runSeed := seed + uint64(i)
		g.Go(func() error {
			summary, err := run(gctx, runSeed)
			if err != nil {
				return err
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}
