package simulation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"market-sim/internal/market"
)

// Result 汇总一次运行的结果。
type Result struct {
	Rounds       int                 // 实际完成的轮数
	Trades       int                 // 成交次数
	Accepted     []bool              // 每轮是否成交
	Buyers       []market.ActorState // 结束时买方状态
	Sellers      []market.ActorState // 结束时卖方状态
	TotalsBefore Totals
	TotalsAfter  Totals
}

// Conserved 判断现金与商品总量在运行前后是否守恒。
func (r Result) Conserved() bool {
	return r.TotalsBefore.Cash.Equal(r.TotalsAfter.Cash) && r.TotalsBefore.Goods == r.TotalsAfter.Goods
}

// AcceptanceRate 返回成交轮次占比。
func (r Result) AcceptanceRate() float64 {
	if r.Rounds == 0 {
		return 0
	}
	return float64(r.Trades) / float64(r.Rounds)
}

// Engine 按轮次随机配对买卖双方并执行交易规则。
type Engine struct {
	cfg       Config
	source    Source
	observers []Observer
	logger    *zap.Logger
}

// NewEngine 构建模拟引擎。
func NewEngine(cfg Config, source Source, logger *zap.Logger, observers ...Observer) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New("simulation: source 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}

	return &Engine{
		cfg:       cfg,
		source:    source,
		observers: filtered,
		logger:    logger,
	}, nil
}

// Run 顺序执行全部轮次。ctx 取消时停止发起新一轮，并返回已完成部分的结果与错误。
func (e *Engine) Run(ctx context.Context, pop *Population) (Result, error) {
	if pop == nil {
		return Result{}, errors.New("simulation: population 不能为空")
	}

	result := Result{
		Accepted:     make([]bool, 0, e.cfg.Rounds),
		TotalsBefore: pop.Totals(),
	}

	var runErr error
	buyers, sellers := pop.Buyers(), pop.Sellers()
	for round := 1; round <= e.cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("simulation: 第 %d 轮前中止: %w", round, err)
			break
		}

		buyer := buyers[e.source.IntN(len(buyers))]
		seller := sellers[e.source.IntN(len(sellers))]

		accepted := market.TryTrade(buyer, seller, e.cfg.Price)
		if accepted {
			result.Trades++
		}
		result.Rounds++
		result.Accepted = append(result.Accepted, accepted)

		if len(e.observers) == 0 {
			continue
		}
		outcome := RoundOutcome{
			Round:    round,
			Buyer:    buyer.Snapshot(),
			Seller:   seller.Snapshot(),
			Price:    e.cfg.Price,
			Accepted: accepted,
			Trades:   result.Trades,
		}
		if err := e.notify(ctx, outcome); err != nil {
			runErr = err
			break
		}
	}

	result.Buyers, result.Sellers = pop.Snapshot()
	result.TotalsAfter = pop.Totals()

	if !result.Conserved() {
		// 交易规则只做等额转移，出现不守恒说明参与者被外部修改。
		e.logger.Error("运行前后总量不守恒",
			zap.String("cash_before", result.TotalsBefore.Cash.String()),
			zap.String("cash_after", result.TotalsAfter.Cash.String()),
			zap.Int64("goods_before", result.TotalsBefore.Goods),
			zap.Int64("goods_after", result.TotalsAfter.Goods),
		)
	}

	e.logger.Debug("模拟运行结束",
		zap.Int("rounds", result.Rounds),
		zap.Int("trades", result.Trades),
		zap.Float64("acceptance_rate", result.AcceptanceRate()),
	)

	return result, runErr
}

func (e *Engine) notify(ctx context.Context, outcome RoundOutcome) error {
	for _, obs := range e.observers {
		if err := obs.OnRound(ctx, outcome); err != nil {
			return fmt.Errorf("simulation: 第 %d 轮通知失败: %w", outcome.Round, err)
		}
	}
	return nil
}
