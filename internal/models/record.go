package models

import "time"

// RecordRef 账务记录引用（类型 + 业务编号）
type RecordRef struct {
	Type string `json:"type"`
	No   string `json:"no"`
}

// Billing 各类账务记录共用的账务字段
type Billing struct {
	AmountDue        Money      `gorm:"not null" json:"amount_due"`            // 应付金额（最小货币单位）
	PaidAmount       Money      `gorm:"not null;default:0" json:"paid_amount"` // 已付金额
	PaymentStatus    string     `gorm:"index;not null" json:"payment_status"`  // 支付状态
	GatewayPaymentID string     `gorm:"index" json:"gateway_payment_id"`       // 网关支付流水号
	GatewayOrderID   string     `gorm:"index" json:"gateway_order_id"`         // 网关订单号
	GatewaySignature string     `json:"-"`                                     // 网关回调签名
	PaidAt           *time.Time `gorm:"index" json:"paid_at"`                  // 支付时间
}

// FinancialRecord 账务记录快照（跨四类记录的统一读取视图）
type FinancialRecord struct {
	Type          string `json:"type"`
	No            string `json:"no"`
	AmountDue     Money  `json:"amount_due"`
	PaidAmount    Money  `json:"paid_amount"`
	PaymentStatus string `json:"payment_status"`
	RoomAccountNo string `json:"room_account_no,omitempty"`
}

// Ref 返回记录引用
func (r *FinancialRecord) Ref() RecordRef {
	return RecordRef{Type: r.Type, No: r.No}
}
