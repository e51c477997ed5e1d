package models

import (
	"time"

	"gorm.io/gorm"
)

// Withdrawal 提现申请表（创建时即从余额扣款冻结）
type Withdrawal struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                // 主键
	UserID        uint           `gorm:"not null;index" json:"user_id"`                       // 申请用户ID
	Amount        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 提现金额
	BankName      string         `gorm:"type:varchar(128)" json:"bank_name"`                  // 银行名称
	BankAccount   string         `gorm:"type:varchar(64)" json:"bank_account"`                // 银行账号
	AccountHolder string         `gorm:"type:varchar(128)" json:"account_holder"`             // 开户人
	Status        string         `gorm:"type:varchar(20);not null;index" json:"status"`       // 状态
	RejectReason  string         `gorm:"type:varchar(255)" json:"reject_reason"`              // 驳回原因
	ProcessedBy   *uint          `gorm:"index" json:"processed_by,omitempty"`                 // 处理管理员ID
	ProcessedAt   *time.Time     `json:"processed_at,omitempty"`                              // 处理时间
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`                             // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                      // 软删除时间

	User      User   `gorm:"foreignKey:UserID" json:"user,omitempty"`           // 申请用户
	Processor *Admin `gorm:"foreignKey:ProcessedBy" json:"processor,omitempty"` // 处理管理员
}

// TableName 指定表名
func (Withdrawal) TableName() string {
	return "withdrawals"
}
