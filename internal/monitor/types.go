package monitor

import (
	"time"

	"market-sim/internal/indicator"
	"market-sim/internal/simulation"
)

// EventType 表示监控事件类型。
type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"
)

// Event 封装通用监控事件。
type Event struct {
	Type      EventType   `json:"type"`
	RunID     string      `json:"run_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RunStartedPayload 记录运行参数。
type RunStartedPayload struct {
	Label   string `json:"label"`
	Seed    uint64 `json:"seed"`
	Rounds  int    `json:"rounds"`
	Price   string `json:"price"`
	Buyers  int    `json:"buyers"`
	Sellers int    `json:"sellers"`
}

// RunCompletedPayload 记录运行统计。
type RunCompletedPayload struct {
	Stats     indicator.Result  `json:"stats"`
	Totals    simulation.Totals `json:"totals"`
	Conserved bool              `json:"conserved"`
	Elapsed   string            `json:"elapsed"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Rounds  int                    `json:"rounds"`
	Context map[string]interface{} `json:"context,omitempty"`
}
