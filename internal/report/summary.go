package report

import (
	"time"

	"market-sim/internal/indicator"
	"market-sim/internal/market"
	"market-sim/internal/simulation"
)

// Summary 为一次运行的持久化摘要。
type Summary struct {
	ID         string              `json:"id"`
	Label      string              `json:"label"`
	Seed       uint64              `json:"seed"`
	Price      string              `json:"price"`
	Stats      indicator.Result    `json:"stats"`
	Totals     simulation.Totals   `json:"totals"`
	Conserved  bool                `json:"conserved"`
	Buyers     []market.ActorState `json:"buyers,omitempty"`
	Sellers    []market.ActorState `json:"sellers,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// NewSummary 由运行结果与统计组装摘要。
func NewSummary(id, label string, seed uint64, cfg simulation.Config, result simulation.Result, stats indicator.Result, startedAt, finishedAt time.Time) Summary {
	return Summary{
		ID:         id,
		Label:      label,
		Seed:       seed,
		Price:      cfg.Price.String(),
		Stats:      stats,
		Totals:     result.TotalsAfter,
		Conserved:  result.Conserved(),
		Buyers:     result.Buyers,
		Sellers:    result.Sellers,
		StartedAt:  startedAt.UTC(),
		FinishedAt: finishedAt.UTC(),
	}
}
