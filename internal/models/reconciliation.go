package models

import (
	"time"
)

// Reconciliation 对账记录（按网关订单号 + 支付流水号幂等）
//
// 在任何账务变更之前先落库，作为回调重放的幂等键。
type Reconciliation struct {
	ID               uint      `gorm:"primarykey" json:"id"`                                             // 主键
	GatewayOrderID   string    `gorm:"uniqueIndex:idx_reconcile_key;not null" json:"gateway_order_id"`   // 网关订单号
	GatewayPaymentID string    `gorm:"uniqueIndex:idx_reconcile_key;not null" json:"gateway_payment_id"` // 网关支付流水号
	CapturedAmount   Money     `gorm:"not null" json:"captured_amount"`                                  // 捕获金额（最小货币单位）
	Currency         string    `gorm:"not null" json:"currency"`                                         // 币种
	TargetSpec       JSON      `gorm:"type:json" json:"target_spec"`                                     // 请求目标描述
	Outcomes         JSON      `gorm:"type:json" json:"outcomes"`                                        // 逐目标处理结果
	OverallSuccess   bool      `gorm:"not null;default:false" json:"overall_success"`                    // 是否至少一个目标成功
	Status           string    `gorm:"index;not null" json:"status"`                                     // 处理状态
	CreatedAt        time.Time `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt        time.Time `json:"updated_at"`                                                       // 更新时间
}

// TableName 指定表名
func (Reconciliation) TableName() string {
	return "reconciliations"
}
