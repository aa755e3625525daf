package market

import "github.com/shopspring/decimal"

// TryTrade 尝试以固定价格成交一单位商品。
// 仅当买卖双方的效用都严格提高时才执行，返回是否成交；未成交时不修改任何状态。
func TryTrade(buyer, seller *Actor, price decimal.Decimal) bool {
	if buyer == nil || seller == nil || price.Sign() <= 0 {
		return false
	}
	if buyer.cash.LessThan(price) || seller.goods < 1 {
		return false
	}

	buyerCash := buyer.cash.Sub(price)
	sellerCash := seller.cash.Add(price)

	buyerGain := buyer.utilityAt(buyerCash, buyer.goods+1).GreaterThan(buyer.Utility())
	sellerGain := seller.utilityAt(sellerCash, seller.goods-1).GreaterThan(seller.Utility())
	if !buyerGain || !sellerGain {
		return false
	}

	buyer.cash = buyerCash
	buyer.goods++
	seller.cash = sellerCash
	seller.goods--
	return true
}

// ValidatePrice 校验成交价格必须为正。
func ValidatePrice(price decimal.Decimal) error {
	if price.Sign() <= 0 {
		return invalid("price", "必须大于0: %s", price)
	}
	return nil
}
