package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"market-sim/internal/simulation"
)

const (
	writeWait    = 10 * time.Second
	planReadWait = 30 * time.Second
)

// roundStreamer 将每轮结果推送给 WebSocket 客户端，并按间隔放慢节奏以便前端逐帧展示。
type roundStreamer struct {
	conn     *websocket.Conn
	interval time.Duration
}

func (rs *roundStreamer) OnRound(ctx context.Context, outcome simulation.RoundOutcome) error {
	if err := writeStream(rs.conn, StreamMessage{Type: messageRound, Round: &outcome}); err != nil {
		return fmt.Errorf("api: 推送第 %d 轮失败: %w", outcome.Round, err)
	}
	if rs.interval <= 0 {
		return nil
	}

	timer := time.NewTimer(rs.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// handleStream 读取客户端发送的一份运行参数，随后逐轮推送结果，最后推送摘要并关闭连接。
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(planReadWait))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		s.logger.Debug("读取运行参数失败", zap.Error(err))
		return
	}

	plan, err := decodePlan(s.schema, msg)
	if err == nil && plan.Rounds > s.cfg.MaxRounds {
		err = fmt.Errorf("rounds 不能超过 %d", s.cfg.MaxRounds)
	}
	if err != nil {
		_ = writeStream(conn, StreamMessage{Type: messageError, Error: err.Error()})
		closeStream(conn)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 客户端断开即停止发起新一轮
	_ = conn.SetReadDeadline(time.Time{})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	streamer := &roundStreamer{conn: conn, interval: s.cfg.StreamInterval}
	summary, err := s.runner.Run(ctx, plan, streamer)
	if err != nil {
		s.logger.Warn("流式运行中止", zap.Error(err))
		_ = writeStream(conn, StreamMessage{Type: messageError, Error: err.Error()})
		closeStream(conn)
		return
	}

	_ = writeStream(conn, StreamMessage{Type: messageSummary, Summary: &summary})
	closeStream(conn)
}

func writeStream(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func closeStream(conn *websocket.Conn) {
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
}
