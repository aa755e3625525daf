package journal

import (
	"context"
	"testing"

	"market-sim/internal/simulation"
)

func TestWriter_RecordsEveryRound(t *testing.T) {
	dir := t.TempDir()
	w, err := Create(dir, "run-1")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	plan := simulation.DefaultPlan()
	plan.Rounds = 30
	cfg, pop, err := plan.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	engine, err := simulation.NewEngine(cfg, simulation.NewSource(11), nil, w)
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	result, err := engine.Run(context.Background(), pop)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}

	outcomes, err := Read(PathFor(dir, "run-1"))
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(outcomes) != result.Rounds {
		t.Fatalf("expected %d entries, got %d", result.Rounds, len(outcomes))
	}
	for i, o := range outcomes {
		if o.Round != i+1 || o.Accepted != result.Accepted[i] {
			t.Fatalf("entry %d mismatch: %+v", i, o)
		}
	}
	if last := outcomes[len(outcomes)-1]; last.Trades != result.Trades {
		t.Errorf("expected cumulative trades %d, got %d", result.Trades, last.Trades)
	}
}

func TestWriter_RejectsAfterClose(t *testing.T) {
	w, err := Create(t.TempDir(), "closed")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	_ = w.Close()
	if err := w.OnRound(context.Background(), simulation.RoundOutcome{Round: 1}); err == nil {
		t.Fatalf("expected error after close")
	}
}
