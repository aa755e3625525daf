package api

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"market-sim/internal/simulation"
)

const planSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "label":   {"type": "string", "maxLength": 64},
    "seed":    {"type": "integer", "minimum": 0},
    "rounds":  {"type": "integer", "minimum": 1},
    "price":   {"type": "number", "exclusiveMinimum": 0},
    "buyers":  {"$ref": "#/definitions/cohort"},
    "sellers": {"$ref": "#/definitions/cohort"}
  },
  "definitions": {
    "cohort": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "count":        {"type": "integer", "minimum": 1, "maximum": 10000},
        "cash":         {"type": "number", "minimum": 0},
        "goods":        {"type": "integer", "minimum": 0},
        "cash_weight":  {"type": "number", "minimum": 0},
        "goods_weight": {"type": "number", "minimum": 0}
      }
    }
  }
}`

func compilePlanSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.CompileString("plan.schema.json", planSchema)
	if err != nil {
		return nil, fmt.Errorf("api: 编译请求 schema 失败: %w", err)
	}
	return schema, nil
}

// decodePlan 校验请求体并在默认参数上覆盖请求中出现的字段。
func decodePlan(schema *jsonschema.Schema, body []byte) (simulation.Plan, error) {
	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return simulation.Plan{}, fmt.Errorf("请求体不是合法 JSON: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return simulation.Plan{}, fmt.Errorf("请求参数不符合 schema: %w", err)
	}

	plan := simulation.DefaultPlan()
	if err := json.Unmarshal(body, &plan); err != nil {
		return simulation.Plan{}, fmt.Errorf("解析请求参数失败: %w", err)
	}
	// 未指定买方现金时，买方恰好持有一个成交价的现金
	if !hasField(raw, "buyers", "cash") {
		plan.Buyers.Cash = plan.Price
	}
	return plan, nil
}

func hasField(raw interface{}, path ...string) bool {
	for _, key := range path {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return false
		}
		if raw, ok = obj[key]; !ok {
			return false
		}
	}
	return true
}
