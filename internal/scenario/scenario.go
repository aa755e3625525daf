package scenario

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"market-sim/internal/market"
	"market-sim/internal/simulation"
)

// ActorEntry 为名单中的单个参与者。
type ActorEntry struct {
	ID          string `yaml:"id"`
	Cash        string `yaml:"cash"`
	Goods       int64  `yaml:"goods"`
	CashWeight  string `yaml:"cash_weight"`
	GoodsWeight string `yaml:"goods_weight"`
}

// Scenario 为显式指定全部参与者的运行定义。
type Scenario struct {
	Label   string       `yaml:"label"`
	Seed    uint64       `yaml:"seed"`
	Rounds  int          `yaml:"rounds"`
	Price   string       `yaml:"price"`
	Buyers  []ActorEntry `yaml:"buyers"`
	Sellers []ActorEntry `yaml:"sellers"`
}

// Load 读取 YAML 名单文件。
func Load(path string) (Scenario, error) {
	var s Scenario
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("scenario: 读取文件失败: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("scenario: %s: %w", path, err)
	}
	return s, nil
}

// Build 校验名单并生成运行配置与参与者集合。
// 金额字段使用字符串以避免浮点表示误差，空字符串视为 0。
func (s Scenario) Build() (simulation.Config, *simulation.Population, error) {
	var err error

	price, priceErr := parseAmount("price", s.Price)
	err = multierr.Append(err, priceErr)
	cfg := simulation.Config{Rounds: s.Rounds, Price: price}
	if priceErr == nil {
		err = multierr.Append(err, cfg.Validate())
	}

	buyers, buyerErr := buildActors("buyers", s.Buyers)
	err = multierr.Append(err, buyerErr)
	sellers, sellerErr := buildActors("sellers", s.Sellers)
	err = multierr.Append(err, sellerErr)

	if err != nil {
		return simulation.Config{}, nil, fmt.Errorf("scenario: %q 无效: %w", s.Label, err)
	}

	pop, err := simulation.NewPopulation(buyers, sellers)
	if err != nil {
		return simulation.Config{}, nil, err
	}
	return cfg, pop, nil
}

func buildActors(role string, entries []ActorEntry) ([]*market.Actor, error) {
	var err error
	actors := make([]*market.Actor, 0, len(entries))
	for i, entry := range entries {
		field := fmt.Sprintf("%s[%d]", role, i)
		cash, cErr := parseAmount(field+".cash", entry.Cash)
		cw, cwErr := parseAmount(field+".cash_weight", entry.CashWeight)
		gw, gwErr := parseAmount(field+".goods_weight", entry.GoodsWeight)
		if parseErr := multierr.Combine(cErr, cwErr, gwErr); parseErr != nil {
			err = multierr.Append(err, parseErr)
			continue
		}

		actor, newErr := market.NewActor(entry.ID, cash, entry.Goods, cw, gw)
		if newErr != nil {
			err = multierr.Append(err, newErr)
			continue
		}
		actors = append(actors, actor)
	}
	return actors, err
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &market.ValidationError{Field: field, Reason: fmt.Sprintf("无法解析数值 %q", raw)}
	}
	return d, nil
}
