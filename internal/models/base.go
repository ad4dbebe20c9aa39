package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON jsonb 字段类型
type JSON map[string]interface{}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported JSON source %T", value)
	}
}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// AllModels 需要迁移的全部模型，按外键依赖排序
func AllModels() []interface{} {
	return []interface{}{
		&Marchee{},
		&Zone{},
		&Hall{},
		&Merchant{},
		&Place{},
		&Category{},
		&AnnualFee{},
		&Contract{},
		&Payment{},
		&Admin{},
		&OperationLog{},
	}
}
