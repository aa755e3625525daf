package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"market-sim/internal/market"
)

func TestEngineRun_DeterministicSequence(t *testing.T) {
	plan := DefaultPlan()
	plan.Rounds = 4
	cfg, pop, err := plan.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	// 买方下标、卖方下标交替出现
	source := NewSequenceSource(0, 0, 1, 0, 0, 0, 2, 3)
	engine, err := NewEngine(cfg, source, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	result, err := engine.Run(context.Background(), pop)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	expected := []bool{true, true, false, true}
	if result.Rounds != len(expected) {
		t.Fatalf("expected %d rounds, got %d", len(expected), result.Rounds)
	}
	for i, want := range expected {
		if result.Accepted[i] != want {
			t.Errorf("round %d: expected accepted=%v", i+1, want)
		}
	}
	if result.Trades != 3 {
		t.Errorf("expected 3 trades, got %d", result.Trades)
	}
	if result.Sellers[0].Goods != 8 || !result.Sellers[0].Cash.Equal(decimal.NewFromInt(2)) {
		t.Errorf("unexpected seller-0 state: %+v", result.Sellers[0])
	}
	if result.Sellers[3].Goods != 9 {
		t.Errorf("unexpected seller-3 goods: %d", result.Sellers[3].Goods)
	}
	if !result.Buyers[0].Cash.IsZero() || result.Buyers[0].Goods != 1 {
		t.Errorf("unexpected buyer-0 state: %+v", result.Buyers[0])
	}
	if !result.Conserved() {
		t.Errorf("expected totals to be conserved: %+v -> %+v", result.TotalsBefore, result.TotalsAfter)
	}
}

func TestEngineRun_SameSeedSameOutcome(t *testing.T) {
	run := func() Result {
		plan := DefaultPlan()
		plan.Rounds = 200
		plan.Buyers.Cash = 3
		cfg, pop, err := plan.Build()
		if err != nil {
			t.Fatalf("Build returned error: %v", err)
		}
		engine, err := NewEngine(cfg, NewSource(42), nil)
		if err != nil {
			t.Fatalf("NewEngine returned error: %v", err)
		}
		result, err := engine.Run(context.Background(), pop)
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		return result
	}

	first, second := run(), run()
	if first.Trades != second.Trades {
		t.Fatalf("trade count differs: %d vs %d", first.Trades, second.Trades)
	}
	for i := range first.Accepted {
		if first.Accepted[i] != second.Accepted[i] {
			t.Fatalf("outcome differs at round %d", i+1)
		}
	}
	// 每个买方最多成交 3 次
	if first.Trades > 3*20 {
		t.Fatalf("more trades than buyer cash allows: %d", first.Trades)
	}
}

func TestEngineRun_IdenticalWeightRatiosNoTrades(t *testing.T) {
	plan := DefaultPlan()
	plan.Rounds = 100
	plan.Buyers.Cash = 50
	plan.Buyers.CashWeight, plan.Buyers.GoodsWeight = 1, 1
	plan.Sellers.CashWeight, plan.Sellers.GoodsWeight = 2, 2

	cfg, pop, err := plan.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	engine, err := NewEngine(cfg, NewSource(7), nil)
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	result, err := engine.Run(context.Background(), pop)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Trades != 0 {
		t.Fatalf("expected no trades, got %d", result.Trades)
	}
}

func TestEngineRun_ConservesTotals(t *testing.T) {
	plan := DefaultPlan()
	plan.Rounds = 500
	plan.Price = 0.3
	plan.Buyers.Cash = 2.5
	plan.Buyers.Count, plan.Sellers.Count = 7, 5
	plan.Sellers.CashWeight, plan.Sellers.GoodsWeight = 5, 1

	cfg, pop, err := plan.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	engine, err := NewEngine(cfg, NewSource(99), nil, ObserverFunc(func(ctx context.Context, o RoundOutcome) error {
		for _, s := range []market.ActorState{o.Buyer, o.Seller} {
			if s.Cash.IsNegative() || s.Goods < 0 {
				t.Fatalf("negative holdings at round %d: %+v", o.Round, s)
			}
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	result, err := engine.Run(context.Background(), pop)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Trades == 0 {
		t.Fatalf("expected some trades")
	}
	if !result.Conserved() {
		t.Fatalf("totals not conserved: %+v -> %+v", result.TotalsBefore, result.TotalsAfter)
	}
	if !result.TotalsAfter.Cash.Equal(decimal.RequireFromString("17.5")) {
		t.Errorf("unexpected cash total %s", result.TotalsAfter.Cash)
	}
}

func TestEngineRun_CancelStopsIssuingRounds(t *testing.T) {
	plan := DefaultPlan()
	plan.Rounds = 50
	cfg, pop, err := plan.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := NewEngine(cfg, NewSource(3), nil, ObserverFunc(func(ctx context.Context, o RoundOutcome) error {
		if o.Round == 5 {
			cancel()
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	result, err := engine.Run(ctx, pop)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Rounds != 5 {
		t.Fatalf("expected 5 completed rounds, got %d", result.Rounds)
	}
	if len(result.Buyers) != 20 || !result.Conserved() {
		t.Fatalf("expected final state for partial run")
	}
}

func TestEngineRun_ObserverErrorAborts(t *testing.T) {
	plan := DefaultPlan()
	cfg, pop, err := plan.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	boom := errors.New("boom")
	engine, err := NewEngine(cfg, NewSource(1), nil, ObserverFunc(func(ctx context.Context, o RoundOutcome) error {
		if o.Round == 2 {
			return boom
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	result, err := engine.Run(context.Background(), pop)
	if !errors.Is(err, boom) {
		t.Fatalf("expected observer error, got %v", err)
	}
	if result.Rounds != 2 {
		t.Fatalf("expected run to stop after round 2, got %d", result.Rounds)
	}
}

func TestNewEngine_Errors(t *testing.T) {
	if _, err := NewEngine(Config{Rounds: 0, Price: decimal.NewFromInt(1)}, NewSource(1), nil); !errors.Is(err, market.ErrValidation) {
		t.Errorf("expected validation error for zero rounds, got %v", err)
	}
	if _, err := NewEngine(Config{Rounds: 1, Price: decimal.Zero}, NewSource(1), nil); !errors.Is(err, market.ErrValidation) {
		t.Errorf("expected validation error for zero price, got %v", err)
	}
	if _, err := NewEngine(Config{Rounds: 1, Price: decimal.NewFromInt(1)}, nil, nil); err == nil {
		t.Errorf("expected error for nil source")
	}
}
