package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"market-sim/internal/indicator"
	"market-sim/internal/simulation"
	"market-sim/internal/store"
)

// Service 负责持久化运行生命周期事件。
type Service struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewService 初始化监控服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS monitor_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	run_id TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitor_events_type ON monitor_events(event_type);
CREATE INDEX IF NOT EXISTS idx_monitor_events_run ON monitor_events(run_id);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO monitor_events (event_type, run_id, payload, created_at) VALUES (?, ?, ?, ?)`,
		string(event.Type), event.RunID, string(payload), event.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

// RecordRunStarted 记录运行开始。
func (s *Service) RecordRunStarted(ctx context.Context, runID string, plan RunStartedPayload) {
	if err := s.Record(context.WithoutCancel(ctx), Event{
		Type:    EventRunStarted,
		RunID:   runID,
		Payload: plan,
	}); err != nil {
		s.logger.Warn("记录运行开始事件失败", zap.String("run_id", runID), zap.Error(err))
	}
}

// RecordRunCompleted 记录运行完成。
func (s *Service) RecordRunCompleted(ctx context.Context, runID string, stats indicator.Result, result simulation.Result, elapsed time.Duration) {
	if err := s.Record(ctx, Event{
		Type:  EventRunCompleted,
		RunID: runID,
		Payload: RunCompletedPayload{
			Stats:     stats,
			Totals:    result.TotalsAfter,
			Conserved: result.Conserved(),
			Elapsed:   elapsed.String(),
		},
	}); err != nil {
		s.logger.Warn("记录运行完成事件失败", zap.String("run_id", runID), zap.Error(err))
	}
}

// RecordRunFailed 记录运行异常。
func (s *Service) RecordRunFailed(ctx context.Context, runID, msg string, err error, rounds int, ctxMap map[string]interface{}) {
	payload := ErrorPayload{
		Message: msg,
		Error:   err.Error(),
		Rounds:  rounds,
		Context: ctxMap,
	}
	// 运行可能因 ctx 取消而失败，此时仍需落库
	if recErr := s.Record(context.WithoutCancel(ctx), Event{
		Type:    EventRunFailed,
		RunID:   runID,
		Payload: payload,
	}); recErr != nil {
		s.logger.Warn("记录异常事件失败", zap.String("run_id", runID), zap.Error(recErr))
	}
}

// ListEvents 按类型检索最近事件，eventType 为空时返回全部类型。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT event_type, run_id, payload, created_at FROM monitor_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			typ     string
			runID   string
			payload string
			created string
		)
		if scanErr := rows.Scan(&typ, &runID, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			ts = time.Now().UTC()
		}

		events = append(events, Event{
			Type:      EventType(typ),
			RunID:     runID,
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}

	return events, nil
}
