package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"market-sim/internal/config"
	"market-sim/internal/indicator"
	"market-sim/internal/simulation"
	"market-sim/internal/store"
)

func TestRepository_SaveGetList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := makeSummary(t, "run-a", 1, time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
	second := makeSummary(t, "run-b", 2, time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC))
	for _, s := range []Summary{first, second} {
		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
	}

	got, err := repo.Get(ctx, "run-a")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Seed != 1 || got.Price != "1" || !got.Conserved {
		t.Errorf("unexpected summary: %+v", got)
	}
	if got.Stats.Trades != first.Stats.Trades || got.Stats.Rounds != first.Stats.Rounds {
		t.Errorf("stats mismatch: got %+v want %+v", got.Stats, first.Stats)
	}
	if len(got.Buyers) != 2 || len(got.Sellers) != 2 {
		t.Fatalf("expected actor states, got %d/%d", len(got.Buyers), len(got.Sellers))
	}
	if !got.Totals.Cash.Equal(decimal.NewFromInt(2)) || got.Totals.Goods != 20 {
		t.Errorf("unexpected totals: %+v", got.Totals)
	}
	if !got.FinishedAt.Equal(first.FinishedAt) {
		t.Errorf("finished_at mismatch: %s vs %s", got.FinishedAt, first.FinishedAt)
	}

	list, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "run-b" {
		t.Fatalf("expected newest run first, got %+v", list)
	}
	if list[0].Buyers != nil {
		t.Errorf("list should not include actor states")
	}
}

func TestRepository_ListOrdersWithinSameSecond(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	whole := makeSummary(t, "run-whole", 1, base)
	half := makeSummary(t, "run-half", 2, base.Add(500*time.Millisecond))
	for _, s := range []Summary{half, whole} {
		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
	}

	listed, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != "run-half" || listed[1].ID != "run-whole" {
		t.Fatalf("expected newest run first, got %+v", listed)
	}
	if !listed[1].FinishedAt.Equal(base) {
		t.Errorf("finished_at mismatch: %s vs %s", listed[1].FinishedAt, base)
	}
}

func TestRepository_GetMissing(t *testing.T) {
	repo := newTestRepository(t)
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	s, err := store.NewSQLite(config.DatabaseConfig{InMemory: true})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	repo, err := NewRepository(s, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}
	return repo
}

func makeSummary(t *testing.T, id string, seed uint64, finished time.Time) Summary {
	t.Helper()
	plan := simulation.DefaultPlan()
	plan.Rounds = 5
	plan.Buyers.Count, plan.Sellers.Count = 2, 2

	cfg, pop, err := plan.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	engine, err := simulation.NewEngine(cfg, simulation.NewSource(seed), nil)
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	result, err := engine.Run(context.Background(), pop)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	stats, err := indicator.NewCalculator(3).Compute(result.Accepted)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	return NewSummary(id, "test", seed, cfg, result, stats, finished.Add(-time.Second), finished)
}
