package model

import (
	"database/sql/driver"
	"fmt"
	"math/big"
)

// BigInt wei/代币金额类型，数据库中以十进制字符串存储
// cap * rate 会超出 int64 范围，必须使用大整数
type BigInt struct {
	big.Int
}

// NewBigInt 从 int64 创建金额
func NewBigInt(v int64) BigInt {
	var b BigInt
	b.SetInt64(v)
	return b
}

// NewBigIntFromString 从十进制字符串创建金额
func NewBigIntFromString(s string) (BigInt, error) {
	var b BigInt
	if _, ok := b.SetString(s, 10); !ok {
		return BigInt{}, fmt.Errorf("无效的金额: %s", s)
	}
	return b, nil
}

// Value 实现 driver.Valuer 接口
func (b BigInt) Value() (driver.Value, error) {
	return b.String(), nil
}

// Scan 实现 sql.Scanner 接口
func (b *BigInt) Scan(value interface{}) error {
	if value == nil {
		b.SetInt64(0)
		return nil
	}

	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		b.SetInt64(v)
		return nil
	default:
		return fmt.Errorf("无法扫描金额类型: %T", value)
	}

	if s == "" {
		b.SetInt64(0)
		return nil
	}
	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("无效的金额: %s", s)
	}
	return nil
}

// GormDataType 自定义gorm字段类型
func (BigInt) GormDataType() string {
	return "string"
}

// MarshalJSON 以字符串输出，避免前端精度丢失
func (b BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

// UnmarshalJSON 同时接受字符串和数字
func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		b.SetInt64(0)
		return nil
	}
	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("无效的金额: %s", s)
	}
	return nil
}

// Cmp 比较两个金额
func (b *BigInt) Cmp(other *BigInt) int {
	return b.Int.Cmp(&other.Int)
}

// AddAmount 返回 b + other
func (b *BigInt) AddAmount(other *BigInt) BigInt {
	var r BigInt
	r.Add(&b.Int, &other.Int)
	return r
}

// SubAmount 返回 b - other
func (b *BigInt) SubAmount(other *BigInt) BigInt {
	var r BigInt
	r.Sub(&b.Int, &other.Int)
	return r
}

// IsZero 金额是否为零
func (b *BigInt) IsZero() bool {
	return b.Sign() == 0
}
