package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "market"
)

// Load 读取配置文件并结合环境变量返回 Config。
// 当前目录存在 .env 时先加载其中的变量，已有的环境变量优先。
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 未配置买方现金时，买方恰好持有一个成交价的现金
	if v.IsSet("market.buyers.cash") {
		cfg.Market.Buyers.Cash = v.GetFloat64("market.buyers.cash")
	} else {
		cfg.Market.Buyers.Cash = cfg.Market.Price
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("market.price", 1.0)
	v.SetDefault("market.rounds", 10)
	v.SetDefault("market.seed", 1)
	v.SetDefault("market.buyers.count", 20)
	v.SetDefault("market.buyers.goods", 0)
	v.SetDefault("market.buyers.cash_weight", 1.0)
	v.SetDefault("market.buyers.goods_weight", 2.0)
	v.SetDefault("market.sellers.count", 20)
	v.SetDefault("market.sellers.cash", 0.0)
	v.SetDefault("market.sellers.goods", 10)
	v.SetDefault("market.sellers.cash_weight", 2.0)
	v.SetDefault("market.sellers.goods_weight", 1.0)

	v.SetDefault("sweep.runs", 1)
	v.SetDefault("sweep.parallelism", 4)

	v.SetDefault("scenario.path", "")

	v.SetDefault("indicator.window", 10)

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.dir", "data/journal")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.stream_interval", "50ms")
	v.SetDefault("server.max_rounds", 10000)

	v.SetDefault("database.path", "data/market_sim.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
