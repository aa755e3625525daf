package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Profile 描述一类参与者共享的初始禀赋与偏好。
type Profile struct {
	Cash        decimal.Decimal
	Goods       int64
	CashWeight  decimal.Decimal
	GoodsWeight decimal.Decimal
}

// Spawn 按 Profile 批量创建 count 个参与者，标识为 prefix-0 ... prefix-(count-1)。
func (p Profile) Spawn(prefix string, count int) ([]*Actor, error) {
	if count <= 0 {
		return nil, invalid(prefix+".count", "必须大于0: %d", count)
	}

	actors := make([]*Actor, 0, count)
	for i := 0; i < count; i++ {
		actor, err := NewActor(fmt.Sprintf("%s-%d", prefix, i), p.Cash, p.Goods, p.CashWeight, p.GoodsWeight)
		if err != nil {
			// 同一 Profile 下每个参与者的错误都相同，遇到第一个即返回。
			return nil, err
		}
		actors = append(actors, actor)
	}
	return actors, nil
}
