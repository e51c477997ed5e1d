package repository

import "time"

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Role        string
	Status      string
	ParentID    uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	ReferrerID  uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ReferralLinkListFilter 查询推荐链接列表的过滤条件
type ReferralLinkListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Code     string
	Status   string
	Keyword  string
}

// ReferralClickListFilter 查询推荐点击记录的过滤条件
type ReferralClickListFilter struct {
	Page           int
	PageSize       int
	ReferralLinkID uint
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

// CommissionListFilter 查询佣金记录列表的过滤条件
type CommissionListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	OrderID     uint
	Status      string
	Level       int
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WithdrawalListFilter 查询提现申请列表的过滤条件
type WithdrawalListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
