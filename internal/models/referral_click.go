package models

import "time"

// ReferralClick 推荐点击记录（仅追加，用于统计分析）
type ReferralClick struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                       // 主键
	ReferralLinkID uint      `gorm:"not null;index" json:"referral_link_id"`                     // 推荐链接ID
	ClientIP       string    `gorm:"type:varchar(64)" json:"client_ip"`                          // 客户端IP
	UserAgent      string    `gorm:"type:varchar(1024)" json:"user_agent"`                       // 客户端UA
	Referrer       string    `gorm:"type:varchar(1024)" json:"referrer"`                         // 来源地址
	LandingPath    string    `gorm:"type:varchar(512)" json:"landing_path"`                      // 落地页面路径
	CreatedAt      time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"created_at"` // 创建时间

	ReferralLink ReferralLink `gorm:"foreignKey:ReferralLinkID" json:"referral_link,omitempty"` // 推荐链接
}

// TableName 指定表名
func (ReferralClick) TableName() string {
	return "referral_clicks"
}
