package models

import (
	"time"
)

// CommissionSetting 佣金比例配置表（按角色与佣金类型唯一）
type CommissionSetting struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                                                    // 主键
	Role           string    `gorm:"type:varchar(20);not null;index:idx_commission_setting_key,unique" json:"role"`           // 角色
	CommissionType string    `gorm:"type:varchar(20);not null;index:idx_commission_setting_key,unique" json:"commission_type"` // 佣金类型
	Percent        Money     `gorm:"type:decimal(10,2);not null;default:0" json:"percent"`                                    // 比例（百分比）
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                                                 // 创建时间
	UpdatedAt      time.Time `gorm:"index" json:"updated_at"`                                                                 // 更新时间
}

// TableName 指定表名
func (CommissionSetting) TableName() string {
	return "commission_settings"
}
