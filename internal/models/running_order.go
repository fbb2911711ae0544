package models

import (
	"time"

	"gorm.io/gorm"
)

// RunningOrder 在店消费挂账订单（客房点餐等，可挂入房账）
type RunningOrder struct {
	ID            uint           `gorm:"primarykey" json:"id"`                 // 主键
	OrderNo       string         `gorm:"uniqueIndex;not null" json:"order_no"` // 订单编号
	RoomAccountNo string         `gorm:"index" json:"room_account_no"`         // 所属房账编号（可为空）
	RoomNo        string         `json:"room_no"`                              // 房间号
	GuestName     string         `json:"guest_name"`                           // 客人姓名
	Billing       Billing        `gorm:"embedded" json:"billing"`              // 账务字段
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`              // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                           // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                       // 软删除时间
}

// TableName 指定表名
func (RunningOrder) TableName() string {
	return "running_orders"
}
