package api

import (
	"context"

	"market-sim/internal/monitor"
	"market-sim/internal/report"
	"market-sim/internal/simulation"
)

// Runner 执行一次模拟运行并返回摘要。
type Runner interface {
	Run(ctx context.Context, plan simulation.Plan, observers ...simulation.Observer) (report.Summary, error)
}

// RunReader 读取历史运行摘要。
type RunReader interface {
	Get(ctx context.Context, id string) (report.Summary, error)
	List(ctx context.Context, limit int) ([]report.Summary, error)
}

// EventLister 检索监控事件。
type EventLister interface {
	ListEvents(ctx context.Context, eventType monitor.EventType, limit int) ([]monitor.Event, error)
}

// ErrorResponse 为统一错误响应。
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StreamMessage 为 WebSocket 下行消息，Type 为 round、summary 或 error。
type StreamMessage struct {
	Type    string                   `json:"type"`
	Round   *simulation.RoundOutcome `json:"round,omitempty"`
	Summary *report.Summary          `json:"summary,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

const (
	messageRound   = "round"
	messageSummary = "summary"
	messageError   = "error"
)
