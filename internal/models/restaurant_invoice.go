package models

import (
	"time"

	"gorm.io/gorm"
)

// RestaurantInvoice 餐厅账单（堂食，可挂入房账）
type RestaurantInvoice struct {
	ID            uint           `gorm:"primarykey" json:"id"`                   // 主键
	InvoiceNo     string         `gorm:"uniqueIndex;not null" json:"invoice_no"` // 账单编号
	RoomAccountNo string         `gorm:"index" json:"room_account_no"`           // 所属房账编号（堂食散客为空）
	TableNo       string         `json:"table_no"`                               // 桌号
	GuestName     string         `json:"guest_name"`                             // 客人姓名
	Billing       Billing        `gorm:"embedded" json:"billing"`                // 账务字段
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                             // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                         // 软删除时间
}

// TableName 指定表名
func (RestaurantInvoice) TableName() string {
	return "restaurant_invoices"
}
