package simulation

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"market-sim/internal/market"
)

// RoundOutcome 记录单轮撮合的结果与成交后双方状态。
type RoundOutcome struct {
	Round    int               `json:"round"`
	Buyer    market.ActorState `json:"buyer"`
	Seller   market.ActorState `json:"seller"`
	Price    decimal.Decimal   `json:"price"`
	Accepted bool              `json:"accepted"`
	Trades   int               `json:"trades"` // 截至本轮的累计成交数
}

// Observer 接收每轮撮合结果，返回错误将终止运行。
type Observer interface {
	OnRound(ctx context.Context, outcome RoundOutcome) error
}

// ObserverFunc 允许使用函数作为 Observer。
type ObserverFunc func(ctx context.Context, outcome RoundOutcome) error

func (f ObserverFunc) OnRound(ctx context.Context, outcome RoundOutcome) error {
	if f == nil {
		return errors.New("simulation: observer 函数未实现")
	}
	return f(ctx, outcome)
}
