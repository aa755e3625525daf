package indicator

import "math"

// Series 将逐轮撮合结果转换为便于统计的数值序列。
type Series struct {
	Accepted   []float64 // 成交记 1，未成交记 0
	Cumulative []float64 // 累计成交数
}

// NewSeries 从逐轮成交标记创建 Series。
func NewSeries(accepted []bool) Series {
	length := len(accepted)
	series := Series{
		Accepted:   make([]float64, length),
		Cumulative: make([]float64, length),
	}

	total := 0.0
	for i, ok := range accepted {
		if ok {
			series.Accepted[i] = 1
			total++
		}
		series.Cumulative[i] = total
	}

	return series
}

// Len 返回序列长度。
func (s Series) Len() int {
	return len(s.Accepted)
}

// Last 返回序列最后一个值，若为空则返回 NaN。
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// SliceTail 返回序列末尾 n 个值，不足时返回全部。
func SliceTail(values []float64, n int) []float64 {
	if n <= 0 || len(values) == 0 {
		return nil
	}
	if len(values) <= n {
		dst := make([]float64, len(values))
		copy(dst, values)
		return dst
	}
	dst := make([]float64, n)
	copy(dst, values[len(values)-n:])
	return dst
}

// SafeDivide 除法保护，除数为0时返回0。
func SafeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
