package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Actor 表示一个持有现金与商品、具有线性效用偏好的市场参与者。
// 现金与商品数量只允许由 TryTrade 修改。
type Actor struct {
	id          string
	cash        decimal.Decimal
	goods       int64
	cashWeight  decimal.Decimal
	goodsWeight decimal.Decimal
}

// ActorState 为参与者在某一时刻的只读快照。
type ActorState struct {
	ID          string          `json:"id"`
	Cash        decimal.Decimal `json:"cash"`
	Goods       int64           `json:"goods"`
	CashWeight  decimal.Decimal `json:"cash_weight"`
	GoodsWeight decimal.Decimal `json:"goods_weight"`
	Utility     decimal.Decimal `json:"utility"`
}

// NewActor 校验初始禀赋与权重后创建参与者，任何非法值都会返回 ValidationError。
func NewActor(id string, cash decimal.Decimal, goods int64, cashWeight, goodsWeight decimal.Decimal) (*Actor, error) {
	var err error

	if strings.TrimSpace(id) == "" {
		err = multierr.Append(err, invalid("id", "不能为空"))
	}
	if cash.IsNegative() {
		err = multierr.Append(err, invalid("cash", "不能为负: %s", cash))
	}
	if goods < 0 {
		err = multierr.Append(err, invalid("goods", "不能为负: %d", goods))
	}
	if cashWeight.IsNegative() {
		err = multierr.Append(err, invalid("cash_weight", "不能为负: %s", cashWeight))
	}
	if goodsWeight.IsNegative() {
		err = multierr.Append(err, invalid("goods_weight", "不能为负: %s", goodsWeight))
	}
	if cashWeight.IsZero() && goodsWeight.IsZero() {
		err = multierr.Append(err, invalid("weights", "cash_weight 与 goods_weight 不能同时为0"))
	}

	if err != nil {
		return nil, fmt.Errorf("market: 创建参与者 %q 失败: %w", id, err)
	}

	return &Actor{
		id:          id,
		cash:        cash,
		goods:       goods,
		cashWeight:  cashWeight,
		goodsWeight: goodsWeight,
	}, nil
}

// ID 返回参与者标识。
func (a *Actor) ID() string {
	return a.id
}

// Cash 返回当前现金余额。
func (a *Actor) Cash() decimal.Decimal {
	return a.cash
}

// Goods 返回当前商品数量。
func (a *Actor) Goods() int64 {
	return a.goods
}

// Utility 按当前持仓计算效用，不做缓存。
func (a *Actor) Utility() decimal.Decimal {
	return a.utilityAt(a.cash, a.goods)
}

func (a *Actor) utilityAt(cash decimal.Decimal, goods int64) decimal.Decimal {
	return a.cashWeight.Mul(cash).Add(a.goodsWeight.Mul(decimal.NewFromInt(goods)))
}

// Snapshot 返回当前状态的副本。
func (a *Actor) Snapshot() ActorState {
	return ActorState{
		ID:          a.id,
		Cash:        a.cash,
		Goods:       a.goods,
		CashWeight:  a.cashWeight,
		GoodsWeight: a.goodsWeight,
		Utility:     a.Utility(),
	}
}

func (a *Actor) String() string {
	return fmt.Sprintf("%s(cash=%s, goods=%d, u=%s)", a.id, a.cash.StringFixed(2), a.goods, a.Utility().StringFixed(1))
}
