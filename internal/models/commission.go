package models

import (
	"time"

	"gorm.io/gorm"
)

// Commission 佣金记录表（创建后除状态外不可变）
type Commission struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                                    // 主键
	OrderID   uint           `gorm:"not null;index;index:idx_commission_order_user,unique" json:"order_id"`  // 订单ID
	UserID    uint           `gorm:"not null;index;index:idx_commission_order_user,unique" json:"user_id"`   // 受益人ID
	Amount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                    // 佣金金额
	Percent   Money          `gorm:"type:decimal(10,2);not null;default:0" json:"percent"`                   // 佣金比例（百分比）
	Level     int            `gorm:"not null;default:1" json:"level"`                                        // 层级（1=直接推荐人）
	Status    string         `gorm:"type:varchar(20);not null;index" json:"status"`                          // 佣金状态
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                                // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                                                // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                                         // 软删除时间

	Order Order `gorm:"foreignKey:OrderID" json:"order,omitempty"` // 关联订单
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`   // 受益人
}

// TableName 指定表名
func (Commission) TableName() string {
	return "commissions"
}
