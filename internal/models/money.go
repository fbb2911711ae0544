package models

import (
	"github.com/shopspring/decimal"
)

// Money 统一金额类型（整数最小货币单位，如 paise）
//
// 所有账务运算都在整数上进行，避免浮点拆分造成的金额丢失；
// 仅在展示与录入边界通过 decimal 转换为卢比。
type Money int64

// NewMoneyFromRupees 从卢比金额创建（四舍五入到 paise）
func NewMoneyFromRupees(amount decimal.Decimal) Money {
	return Money(amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// Rupees 返回卢比金额（两位小数）
func (m Money) Rupees() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// Int64 返回最小单位整数值
func (m Money) Int64() int64 {
	return int64(m)
}

// String 返回卢比格式（如 "123.45"）
func (m Money) String() string {
	return m.Rupees().StringFixed(2)
}
