package simulation

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"market-sim/internal/market"
)

// Population 为一次运行独占的买方与卖方集合。
type Population struct {
	buyers  []*market.Actor
	sellers []*market.Actor
}

// Totals 汇总全体参与者的现金与商品。
type Totals struct {
	Cash  decimal.Decimal `json:"cash"`
	Goods int64           `json:"goods"`
}

// NewPopulation 校验双方非空且标识唯一。
func NewPopulation(buyers, sellers []*market.Actor) (*Population, error) {
	var err error
	if len(buyers) == 0 {
		err = multierr.Append(err, &market.ValidationError{Field: "buyers", Reason: "至少需要一个买方"})
	}
	if len(sellers) == 0 {
		err = multierr.Append(err, &market.ValidationError{Field: "sellers", Reason: "至少需要一个卖方"})
	}

	seen := make(map[string]struct{}, len(buyers)+len(sellers))
	for _, group := range [][]*market.Actor{buyers, sellers} {
		for _, actor := range group {
			if actor == nil {
				err = multierr.Append(err, &market.ValidationError{Field: "actor", Reason: "不能为 nil"})
				continue
			}
			if _, dup := seen[actor.ID()]; dup {
				err = multierr.Append(err, &market.ValidationError{Field: "id", Reason: fmt.Sprintf("重复的参与者标识 %q", actor.ID())})
				continue
			}
			seen[actor.ID()] = struct{}{}
		}
	}

	if err != nil {
		return nil, fmt.Errorf("simulation: 参与者集合无效: %w", err)
	}

	return &Population{
		buyers:  append([]*market.Actor(nil), buyers...),
		sellers: append([]*market.Actor(nil), sellers...),
	}, nil
}

func (p *Population) Buyers() []*market.Actor {
	return p.buyers
}

func (p *Population) Sellers() []*market.Actor {
	return p.sellers
}

// Totals 返回当前现金与商品总量。
func (p *Population) Totals() Totals {
	totals := Totals{Cash: decimal.Zero}
	for _, group := range [][]*market.Actor{p.buyers, p.sellers} {
		for _, actor := range group {
			totals.Cash = totals.Cash.Add(actor.Cash())
			totals.Goods += actor.Goods()
		}
	}
	return totals
}

// Snapshot 返回双方当前状态。
func (p *Population) Snapshot() (buyers, sellers []market.ActorState) {
	buyers = make([]market.ActorState, len(p.buyers))
	for i, actor := range p.buyers {
		buyers[i] = actor.Snapshot()
	}
	sellers = make([]market.ActorState, len(p.sellers))
	for i, actor := range p.sellers {
		sellers[i] = actor.Snapshot()
	}
	return buyers, sellers
}
