package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                     // 主键
	OrderNo     string         `gorm:"uniqueIndex;not null" json:"order_no"`                     // 订单编号
	UserID      uint           `gorm:"index;not null" json:"user_id"`                            // 下单用户ID
	ReferrerID  *uint          `gorm:"index" json:"referrer_id,omitempty"`                       // 推荐人ID（下单时写入，之后不变）
	Status      string         `gorm:"index;not null" json:"status"`                             // 订单状态
	TotalPrice  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // 实付金额
	ConfirmedAt *time.Time     `gorm:"index" json:"confirmed_at"`                                // 确认时间
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                                  // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间

	User     User  `gorm:"foreignKey:UserID" json:"user,omitempty"`         // 下单用户
	Referrer *User `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"` // 推荐人
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
