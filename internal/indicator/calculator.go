package indicator

import (
	"fmt"

	talib "github.com/markcheno/go-talib"
)

const defaultWindow = 10

// Result 为一次运行的成交统计。
type Result struct {
	Rounds          int     `json:"rounds"`
	Trades          int     `json:"trades"`
	AcceptanceRate  float64 `json:"acceptance_rate"`   // 全程成交率
	RollingRate     float64 `json:"rolling_rate"`      // 最近窗口的简单移动平均成交率
	TrendRate       float64 `json:"trend_rate"`        // 指数移动平均成交率
	FirstTradeRound int     `json:"first_trade_round"` // 0 表示从未成交
	LastTradeRound  int     `json:"last_trade_round"`
	LongestDrought  int     `json:"longest_drought"` // 最长连续未成交轮数
}

// Calculator 基于逐轮结果计算成交率指标。
type Calculator struct {
	window int
}

// NewCalculator 创建 Calculator，window 小于 2 时使用默认窗口。
func NewCalculator(window int) *Calculator {
	if window < 2 {
		window = defaultWindow
	}
	return &Calculator{window: window}
}

// Compute 计算成交统计。
func (c *Calculator) Compute(accepted []bool) (Result, error) {
	if len(accepted) == 0 {
		return Result{}, fmt.Errorf("计算指标失败: 输入轮次为空")
	}

	series := NewSeries(accepted)
	trades := int(Last(series.Cumulative))

	result := Result{
		Rounds:         series.Len(),
		Trades:         trades,
		AcceptanceRate: SafeDivide(float64(trades), float64(series.Len())),
	}

	window := c.window
	if series.Len() < window {
		// 轮次不足一个窗口时取已有轮次的均值
		tail := SliceTail(series.Accepted, window)
		result.RollingRate = SafeDivide(sum(tail), float64(len(tail)))
		result.TrendRate = result.RollingRate
	} else {
		result.RollingRate = Last(talib.Sma(series.Accepted, window))
		result.TrendRate = Last(talib.Ema(series.Accepted, window))
	}

	drought := 0
	for i, v := range series.Accepted {
		if v == 0 {
			drought++
			if drought > result.LongestDrought {
				result.LongestDrought = drought
			}
			continue
		}
		drought = 0
		if result.FirstTradeRound == 0 {
			result.FirstTradeRound = i + 1
		}
		result.LastTradeRound = i + 1
	}

	return result, nil
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
