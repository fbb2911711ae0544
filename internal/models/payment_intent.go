package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentIntent 支付意向（结账开始时创建，金额一经创建不可变）
type PaymentIntent struct {
	ID             uint           `gorm:"primarykey" json:"id"`                         // 主键
	GatewayOrderID string         `gorm:"uniqueIndex;not null" json:"gateway_order_id"` // 网关订单号
	Receipt        string         `gorm:"index;not null" json:"receipt"`                // 商户收据号
	Amount         Money          `gorm:"not null" json:"amount"`                       // 金额（最小货币单位）
	Currency       string         `gorm:"not null" json:"currency"`                     // 币种
	Notes          JSON           `gorm:"type:json" json:"notes"`                       // 业务备注
	Status         string         `gorm:"index;not null" json:"status"`                 // 意向状态
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                      // 创建时间
	UpdatedAt      time.Time      `json:"updated_at"`                                   // 更新时间
	CapturedAt     *time.Time     `json:"captured_at"`                                  // 捕获时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                               // 软删除时间
}

// TableName 指定表名
func (PaymentIntent) TableName() string {
	return "payment_intents"
}
