package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"market-sim/internal/config"
	"market-sim/internal/market"
	"market-sim/internal/monitor"
	"market-sim/internal/report"
)

const maxBodyBytes = 1 << 20

// Server 提供运行提交、历史查询与实时推送接口。
type Server struct {
	cfg    config.ServerConfig
	runner Runner
	runs   RunReader
	events EventLister
	schema *jsonschema.Schema
	router *mux.Router
	logger *zap.Logger
}

// NewServer 创建 API 服务。
func NewServer(cfg config.ServerConfig, runner Runner, runs RunReader, events EventLister, logger *zap.Logger) (*Server, error) {
	if runner == nil {
		return nil, errors.New("api: runner 不能为空")
	}
	if runs == nil {
		return nil, errors.New("api: run reader 不能为空")
	}
	if events == nil {
		return nil, errors.New("api: event lister 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	schema, err := compilePlanSchema()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		runner: runner,
		runs:   runs,
		events: events,
		schema: schema,
		router: mux.NewRouter(),
		logger: logger,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/runs", s.handleCreateRun).Methods(http.MethodPost)
	api.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleListEvents).Methods(http.MethodGet)
	api.HandleFunc("/ws", s.handleStream)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// Handler 返回带 CORS 的 http.Handler。
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Serve 监听端口直到 ctx 结束，随后优雅关闭。
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("API 服务已启动", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api: 服务异常: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Warn("关闭 API 服务失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "读取请求体失败", err.Error())
		return
	}

	plan, err := decodePlan(s.schema, body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "请求参数无效", err.Error())
		return
	}
	if plan.Rounds > s.cfg.MaxRounds {
		respondError(w, http.StatusBadRequest, "请求参数无效", fmt.Sprintf("rounds 不能超过 %d", s.cfg.MaxRounds))
		return
	}

	summary, err := s.runner.Run(r.Context(), plan)
	if err != nil {
		if errors.Is(err, market.ErrValidation) {
			respondError(w, http.StatusBadRequest, "请求参数无效", err.Error())
			return
		}
		s.logger.Error("执行模拟失败", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "执行模拟失败", err.Error())
		return
	}

	w.Header().Set("Location", "/api/v1/runs/"+summary.ID)
	respondJSONStatus(w, http.StatusCreated, summary)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), 50, 500)
	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "查询运行记录失败", err.Error())
		return
	}
	respondJSON(w, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	summary, err := s.runs.Get(r.Context(), id)
	if errors.Is(err, report.ErrNotFound) {
		respondError(w, http.StatusNotFound, "运行记录不存在", id)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "查询运行记录失败", err.Error())
		return
	}
	respondJSON(w, summary)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parseLimit(q.Get("limit"), 200, 1000)

	eventType := monitor.EventType("")
	if typ := strings.TrimSpace(q.Get("type")); typ != "" {
		eventType = monitor.EventType(strings.ToLower(typ))
	}

	events, err := s.events.ListEvents(r.Context(), eventType, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "查询事件失败", err.Error())
		return
	}
	respondJSON(w, events)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string, detail string) {
	respondJSONStatus(w, status, ErrorResponse{
		Error:   msg,
		Message: detail,
	})
}
