package models

import (
	"time"

	"gorm.io/gorm"
)

// FoodInvoice 外卖/直售食品账单（不挂房账）
type FoodInvoice struct {
	ID           uint           `gorm:"primarykey" json:"id"`                   // 主键
	InvoiceNo    string         `gorm:"uniqueIndex;not null" json:"invoice_no"` // 账单编号
	CustomerName string         `json:"customer_name"`                          // 顾客姓名
	Phone        string         `json:"phone"`                                  // 联系电话
	Billing      Billing        `gorm:"embedded" json:"billing"`                // 账务字段
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                             // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                         // 软删除时间
}

// TableName 指定表名
func (FoodInvoice) TableName() string {
	return "food_invoices"
}
