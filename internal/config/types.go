package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"market-sim/internal/simulation"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Market    MarketConfig    `mapstructure:"market"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Scenario  ScenarioConfig  `mapstructure:"scenario"`
	Indicator IndicatorConfig `mapstructure:"indicator"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// MarketConfig 描述默认市场参数。
type MarketConfig struct {
	Price   float64           `mapstructure:"price"`
	Rounds  int               `mapstructure:"rounds"`
	Seed    uint64            `mapstructure:"seed"`
	Buyers  simulation.Cohort `mapstructure:"buyers"`
	Sellers simulation.Cohort `mapstructure:"sellers"`
}

// Plan 将市场配置转换为一次运行参数。
func (m MarketConfig) Plan(label string, seed uint64) simulation.Plan {
	return simulation.Plan{
		Label:   label,
		Seed:    seed,
		Rounds:  m.Rounds,
		Price:   m.Price,
		Buyers:  m.Buyers,
		Sellers: m.Sellers,
	}
}

// SweepConfig 控制启动时批量运行的次数与并发度，每次运行使用递增种子。
type SweepConfig struct {
	Runs        int `mapstructure:"runs"`
	Parallelism int `mapstructure:"parallelism"`
}

// ScenarioConfig 指定显式参与者名单文件，为空时按 market 配置生成参与者。
type ScenarioConfig struct {
	Path string `mapstructure:"path"`
}

// IndicatorConfig 控制成交率统计。
type IndicatorConfig struct {
	Window int `mapstructure:"window"`
}

// JournalConfig 控制逐轮日志归档。
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// ServerConfig 控制 HTTP/WebSocket 接口。
type ServerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	StreamInterval time.Duration `mapstructure:"stream_interval"`
	MaxRounds      int           `mapstructure:"max_rounds"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Market.Price <= 0 {
		err = multierr.Append(err, errors.New("market.price 必须大于0"))
	}
	if c.Market.Rounds <= 0 {
		err = multierr.Append(err, errors.New("market.rounds 必须大于0"))
	}
	err = multierr.Append(err, validateCohort("market.buyers", c.Market.Buyers))
	err = multierr.Append(err, validateCohort("market.sellers", c.Market.Sellers))
	if c.Sweep.Runs <= 0 {
		err = multierr.Append(err, errors.New("sweep.runs 必须大于0"))
	}
	if c.Sweep.Parallelism <= 0 {
		err = multierr.Append(err, errors.New("sweep.parallelism 必须大于0"))
	}
	if c.Indicator.Window < 2 {
		err = multierr.Append(err, errors.New("indicator.window 不能小于2"))
	}
	if c.Journal.Enabled && c.Journal.Dir == "" {
		err = multierr.Append(err, errors.New("journal.dir 不能为空"))
	}
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			err = multierr.Append(err, errors.New("server.port 必须位于[1,65535]"))
		}
		if c.Server.StreamInterval < 0 {
			err = multierr.Append(err, errors.New("server.stream_interval 不能为负"))
		}
		if c.Server.MaxRounds <= 0 {
			err = multierr.Append(err, errors.New("server.max_rounds 必须大于0"))
		}
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}

func validateCohort(prefix string, c simulation.Cohort) error {
	var err error
	if c.Count <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s.count 必须大于0", prefix))
	}
	if c.Cash < 0 {
		err = multierr.Append(err, fmt.Errorf("%s.cash 不能为负", prefix))
	}
	if c.Goods < 0 {
		err = multierr.Append(err, fmt.Errorf("%s.goods 不能为负", prefix))
	}
	if c.CashWeight < 0 || c.GoodsWeight < 0 {
		err = multierr.Append(err, fmt.Errorf("%s 权重不能为负", prefix))
	}
	if c.CashWeight == 0 && c.GoodsWeight == 0 {
		err = multierr.Append(err, fmt.Errorf("%s.cash_weight 与 goods_weight 不能同时为0", prefix))
	}
	return err
}
