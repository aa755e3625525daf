package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"market-sim/internal/market"
	"market-sim/internal/store"
)

// timeLayout 为定宽时间格式，保证按文本排序即按时间排序。
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound 表示运行记录不存在。
var ErrNotFound = errors.New("report: run not found")

// Repository 负责运行摘要的读写。
type Repository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

type runRow struct {
	ID             string  `db:"id"`
	Label          string  `db:"label"`
	Seed           int64   `db:"seed"`
	Rounds         int     `db:"rounds"`
	Trades         int     `db:"trades"`
	Price          string  `db:"price"`
	AcceptanceRate float64 `db:"acceptance_rate"`
	RollingRate    float64 `db:"rolling_rate"`
	TrendRate      float64 `db:"trend_rate"`
	CashTotal      string  `db:"cash_total"`
	GoodsTotal     int64   `db:"goods_total"`
	Conserved      bool    `db:"conserved"`
	StartedAt      string  `db:"started_at"`
	FinishedAt     string  `db:"finished_at"`
	Payload        string  `db:"payload"`
}

type actorsPayload struct {
	Stats   json.RawMessage     `json:"stats"`
	Buyers  []market.ActorState `json:"buyers"`
	Sellers []market.ActorState `json:"sellers"`
}

// NewRepository 初始化仓储并创建表结构。
func NewRepository(store *store.Store, logger *zap.Logger) (*Repository, error) {
	if store == nil {
		return nil, fmt.Errorf("report: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Repository{
		db:     store.DB(),
		logger: logger,
	}
	if err := r.initSchema(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL,
	seed INTEGER NOT NULL,
	rounds INTEGER NOT NULL,
	trades INTEGER NOT NULL,
	price TEXT NOT NULL,
	acceptance_rate REAL NOT NULL,
	rolling_rate REAL NOT NULL,
	trend_rate REAL NOT NULL,
	cash_total TEXT NOT NULL,
	goods_total INTEGER NOT NULL,
	conserved INTEGER NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);
`
	if _, err := r.db.Exec(stmt); err != nil {
		return fmt.Errorf("report: 初始化表失败: %w", err)
	}
	return nil
}

// Save 写入或覆盖一次运行摘要。
func (r *Repository) Save(ctx context.Context, s Summary) error {
	stats, err := json.Marshal(s.Stats)
	if err != nil {
		return fmt.Errorf("report: 序列化统计失败: %w", err)
	}
	payload, err := json.Marshal(actorsPayload{Stats: stats, Buyers: s.Buyers, Sellers: s.Sellers})
	if err != nil {
		return fmt.Errorf("report: 序列化参与者失败: %w", err)
	}

	row := runRow{
		ID:             s.ID,
		Label:          s.Label,
		Seed:           int64(s.Seed),
		Rounds:         s.Stats.Rounds,
		Trades:         s.Stats.Trades,
		Price:          s.Price,
		AcceptanceRate: s.Stats.AcceptanceRate,
		RollingRate:    s.Stats.RollingRate,
		TrendRate:      s.Stats.TrendRate,
		CashTotal:      s.Totals.Cash.String(),
		GoodsTotal:     s.Totals.Goods,
		Conserved:      s.Conserved,
		StartedAt:      s.StartedAt.UTC().Format(timeLayout),
		FinishedAt:     s.FinishedAt.UTC().Format(timeLayout),
		Payload:        string(payload),
	}

	_, err = r.db.NamedExecContext(ctx, `
INSERT OR REPLACE INTO runs (
	id, label, seed, rounds, trades, price, acceptance_rate, rolling_rate, trend_rate,
	cash_total, goods_total, conserved, started_at, finished_at, payload
) VALUES (
	:id, :label, :seed, :rounds, :trades, :price, :acceptance_rate, :rolling_rate, :trend_rate,
	:cash_total, :goods_total, :conserved, :started_at, :finished_at, :payload
)`, row)
	if err != nil {
		return fmt.Errorf("report: 写入运行记录失败: %w", err)
	}
	return nil
}

// Get 按 ID 读取完整摘要（含参与者终态）。
func (r *Repository) Get(ctx context.Context, id string) (Summary, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, ErrNotFound
	}
	if err != nil {
		return Summary{}, fmt.Errorf("report: 查询运行记录失败: %w", err)
	}
	return r.decode(row, true)
}

// List 按完成时间倒序列出最近的摘要，不含参与者明细。
func (r *Repository) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM runs ORDER BY finished_at DESC, id LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("report: 查询运行列表失败: %w", err)
	}

	summaries := make([]Summary, 0, len(rows))
	for _, row := range rows {
		s, err := r.decode(row, false)
		if err != nil {
			r.logger.Warn("解析运行记录失败", zap.String("id", row.ID), zap.Error(err))
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func (r *Repository) decode(row runRow, withActors bool) (Summary, error) {
	cash, err := decimal.NewFromString(row.CashTotal)
	if err != nil {
		return Summary{}, fmt.Errorf("report: 解析现金总量失败: %w", err)
	}

	var payload actorsPayload
	if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
		return Summary{}, fmt.Errorf("report: 解析载荷失败: %w", err)
	}

	s := Summary{
		ID:        row.ID,
		Label:     row.Label,
		Seed:      uint64(row.Seed),
		Price:     row.Price,
		Conserved: row.Conserved,
	}
	s.Totals.Cash = cash
	s.Totals.Goods = row.GoodsTotal
	if len(payload.Stats) > 0 {
		if err := json.Unmarshal(payload.Stats, &s.Stats); err != nil {
			return Summary{}, fmt.Errorf("report: 解析统计失败: %w", err)
		}
	}
	s.StartedAt, _ = time.Parse(timeLayout, row.StartedAt)
	s.FinishedAt, _ = time.Parse(timeLayout, row.FinishedAt)
	if withActors {
		s.Buyers = payload.Buyers
		s.Sellers = payload.Sellers
	}
	return s, nil
}
