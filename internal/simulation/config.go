package simulation

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"market-sim/internal/market"
)

// Config 定义一次模拟运行的不可变参数。
type Config struct {
	Rounds int             // 撮合轮数
	Price  decimal.Decimal // 固定成交价
}

// Validate 校验运行参数。
func (c Config) Validate() error {
	var err error
	if c.Rounds <= 0 {
		err = multierr.Append(err, &market.ValidationError{Field: "rounds", Reason: fmt.Sprintf("必须大于0: %d", c.Rounds)})
	}
	err = multierr.Append(err, market.ValidatePrice(c.Price))
	if err != nil {
		return fmt.Errorf("simulation: 配置无效: %w", err)
	}
	return nil
}
