package models

import (
	"time"

	"gorm.io/gorm"
)

// RoomInvoice 客房账单
type RoomInvoice struct {
	ID            uint           `gorm:"primarykey" json:"id"`                   // 主键
	InvoiceNo     string         `gorm:"uniqueIndex;not null" json:"invoice_no"` // 账单编号
	RoomAccountNo string         `gorm:"index" json:"room_account_no"`           // 所属房账编号
	RoomNo        string         `json:"room_no"`                                // 房间号
	GuestName     string         `json:"guest_name"`                             // 客人姓名
	CheckInAt     *time.Time     `json:"check_in_at"`                            // 入住时间
	CheckOutAt    *time.Time     `json:"check_out_at"`                           // 退房时间
	Billing       Billing        `gorm:"embedded" json:"billing"`                // 账务字段
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                             // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                         // 软删除时间
}

// TableName 指定表名
func (RoomInvoice) TableName() string {
	return "room_invoices"
}
