package indicator

import (
	"math"
	"testing"
)

func TestCalculatorCompute_Basic(t *testing.T) {
	calc := NewCalculator(4)
	accepted := []bool{false, true, true, false, false, false, true, true}

	result, err := calc.Compute(accepted)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	if result.Rounds != 8 || result.Trades != 4 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if diff := math.Abs(result.AcceptanceRate - 0.5); diff > 1e-9 {
		t.Errorf("unexpected acceptance rate %f", result.AcceptanceRate)
	}
	// 最后4轮: 0,0,1,1
	if diff := math.Abs(result.RollingRate - 0.5); diff > 1e-9 {
		t.Errorf("unexpected rolling rate %f", result.RollingRate)
	}
	if result.TrendRate <= 0 || result.TrendRate > 1 {
		t.Errorf("trend rate out of range: %f", result.TrendRate)
	}
	if result.FirstTradeRound != 2 || result.LastTradeRound != 8 {
		t.Errorf("unexpected trade rounds: first=%d last=%d", result.FirstTradeRound, result.LastTradeRound)
	}
	if result.LongestDrought != 3 {
		t.Errorf("expected longest drought 3, got %d", result.LongestDrought)
	}
}

func TestCalculatorCompute_ShortSeries(t *testing.T) {
	calc := NewCalculator(10)
	result, err := calc.Compute([]bool{true, false, false})
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if diff := math.Abs(result.RollingRate - 1.0/3); diff > 1e-9 {
		t.Errorf("expected rolling rate to fall back to mean, got %f", result.RollingRate)
	}
	if result.TrendRate != result.RollingRate {
		t.Errorf("expected trend rate %f to match rolling rate %f", result.TrendRate, result.RollingRate)
	}
}

func TestCalculatorCompute_NoTrades(t *testing.T) {
	result, err := NewCalculator(0).Compute(make([]bool, 15))
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if result.Trades != 0 || result.FirstTradeRound != 0 || result.LongestDrought != 15 {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.RollingRate != 0 {
		t.Errorf("expected zero rolling rate, got %f", result.RollingRate)
	}
}

func TestCalculatorCompute_Empty(t *testing.T) {
	if _, err := NewCalculator(5).Compute(nil); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestNewSeries_Cumulative(t *testing.T) {
	s := NewSeries([]bool{true, false, true})
	if Last(s.Cumulative) != 2 || s.Len() != 3 {
		t.Fatalf("unexpected series: %+v", s)
	}
	if tail := SliceTail(s.Accepted, 2); len(tail) != 2 || tail[1] != 1 {
		t.Fatalf("unexpected tail: %v", tail)
	}
}
