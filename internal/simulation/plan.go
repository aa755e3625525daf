package simulation

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"market-sim/internal/market"
)

// Cohort 描述同一角色参与者的数量、初始禀赋与偏好。
type Cohort struct {
	Count       int     `json:"count" mapstructure:"count"`
	Cash        float64 `json:"cash" mapstructure:"cash"`
	Goods       int64   `json:"goods" mapstructure:"goods"`
	CashWeight  float64 `json:"cash_weight" mapstructure:"cash_weight"`
	GoodsWeight float64 `json:"goods_weight" mapstructure:"goods_weight"`
}

// Profile 转换为 market.Profile。
func (c Cohort) Profile() market.Profile {
	return market.Profile{
		Cash:        decimal.NewFromFloat(c.Cash),
		Goods:       c.Goods,
		CashWeight:  decimal.NewFromFloat(c.CashWeight),
		GoodsWeight: decimal.NewFromFloat(c.GoodsWeight),
	}
}

// Plan 为宿主程序提交的一次运行参数，对应控制面板上的全部输入。
type Plan struct {
	Label   string  `json:"label,omitempty"`
	Seed    uint64  `json:"seed"`
	Rounds  int     `json:"rounds"`
	Price   float64 `json:"price"`
	Buyers  Cohort  `json:"buyers"`
	Sellers Cohort  `json:"sellers"`
}

// DefaultPlan 返回默认参数：买方持有恰好一个价格的现金且偏好商品，卖方持有商品且偏好现金。
func DefaultPlan() Plan {
	return Plan{
		Label:  "default",
		Seed:   1,
		Rounds: 10,
		Price:  1.0,
		Buyers: Cohort{
			Count:       20,
			Cash:        1.0,
			Goods:       0,
			CashWeight:  1.0,
			GoodsWeight: 2.0,
		},
		Sellers: Cohort{
			Count:       20,
			Cash:        0,
			Goods:       10,
			CashWeight:  2.0,
			GoodsWeight: 1.0,
		},
	}
}

// Build 校验参数并生成运行配置与参与者集合。
func (p Plan) Build() (Config, *Population, error) {
	cfg := Config{
		Rounds: p.Rounds,
		Price:  decimal.NewFromFloat(p.Price),
	}

	var err error
	err = multierr.Append(err, cfg.Validate())

	buyers, buyerErr := p.Buyers.Profile().Spawn("buyer", p.Buyers.Count)
	err = multierr.Append(err, buyerErr)
	sellers, sellerErr := p.Sellers.Profile().Spawn("seller", p.Sellers.Count)
	err = multierr.Append(err, sellerErr)

	if err != nil {
		return Config{}, nil, fmt.Errorf("simulation: 运行参数无效: %w", err)
	}

	pop, err := NewPopulation(buyers, sellers)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, pop, nil
}
