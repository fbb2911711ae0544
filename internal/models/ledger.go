package models

import (
	"time"

	"gorm.io/gorm"
)

// RoomAccount 房账（每个在住账户一条，维护已付/未付汇总）
type RoomAccount struct {
	ID        uint           `gorm:"primarykey" json:"id"`                   // 主键
	AccountNo string         `gorm:"uniqueIndex;not null" json:"account_no"` // 房账编号
	GuestName string         `json:"guest_name"`                             // 客人姓名
	RoomNo    string         `gorm:"index" json:"room_no"`                   // 房间号
	TotalPaid Money          `gorm:"not null;default:0" json:"total_paid"`   // 已付总额
	Balance   Money          `gorm:"not null;default:0" json:"balance"`      // 未付余额
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                             // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                         // 软删除时间
}

// TableName 指定表名
func (RoomAccount) TableName() string {
	return "room_accounts"
}

// LedgerEntry 房账分录
//
// 同一 (account_no, record_type, record_no) 在任意时刻只存在于一个桶中：
// 未付分录在对账成功时被删除，并插入对应的已付分录。
type LedgerEntry struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                           // 主键
	AccountNo        string     `gorm:"uniqueIndex:idx_ledger_record;index;not null" json:"account_no"` // 房账编号
	RecordType       string     `gorm:"uniqueIndex:idx_ledger_record;not null" json:"record_type"`      // 记录类型
	RecordNo         string     `gorm:"uniqueIndex:idx_ledger_record;not null" json:"record_no"`        // 记录编号
	Bucket           string     `gorm:"index;not null" json:"bucket"`                                   // 所在桶（unpaid/paid）
	Amount           Money      `gorm:"not null" json:"amount"`                                         // 金额（最小货币单位）
	GatewayPaymentID string     `gorm:"index" json:"gateway_payment_id"`                                // 网关支付流水号
	GatewayOrderID   string     `json:"gateway_order_id"`                                               // 网关订单号
	PaidAt           *time.Time `json:"paid_at"`                                                        // 支付时间
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt        time.Time  `json:"updated_at"`                                                     // 更新时间
}

// TableName 指定表名
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
