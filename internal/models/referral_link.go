package models

import (
	"time"

	"gorm.io/gorm"
)

// ReferralLink 推荐链接表（每个可分销用户至多一条有效链接）
type ReferralLink struct {
	ID         uint           `gorm:"primarykey" json:"id"`                                 // 主键
	UserID     uint           `gorm:"not null;uniqueIndex" json:"user_id"`                  // 归属用户ID
	Code       string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"`    // 推荐短码（发放后不变）
	Status     string         `gorm:"type:varchar(20);not null;index" json:"status"`        // 状态
	ClickCount int64          `gorm:"not null;default:0" json:"click_count"`                // 点击计数
	OrderCount int64          `gorm:"not null;default:0" json:"order_count"`                // 成交订单计数
	Revenue    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"revenue"` // 成交金额累计
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt  time.Time      `gorm:"index" json:"updated_at"`                              // 更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                                       // 软删除时间

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"` // 归属用户
}

// TableName 指定表名
func (ReferralLink) TableName() string {
	return "referral_links"
}
