package constants

// 用户角色常量
const (
	UserRoleCustomer    = "customer"
	UserRoleCTV         = "ctv" // 协作推广员（最低层级分销角色）
	UserRoleAgent       = "agent"
	UserRoleMasterAgent = "master_agent"
	UserRoleDistributor = "distributor"
	UserRoleAdmin       = "admin"
)

// ReferralEligibleRoles 可持有推荐链接的角色集合
var ReferralEligibleRoles = []string{
	UserRoleAdmin,
	UserRoleMasterAgent,
	UserRoleDistributor,
	UserRoleAgent,
	UserRoleCTV,
}

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 订单状态常量
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCompleted = "completed"
	OrderStatusCanceled  = "canceled"
)

// 推荐链接状态常量
const (
	ReferralLinkStatusActive   = "active"
	ReferralLinkStatusDisabled = "disabled"
)

// 佣金类型常量
const (
	CommissionTypeRetail   = "retail"   // 直接推荐佣金
	CommissionTypeOverride = "override" // 上级越级佣金
)

// 佣金状态常量
const (
	CommissionStatusPending = "pending"
	CommissionStatusPaid    = "paid"
)

// 提现状态常量
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusPaid     = "paid"
	WithdrawalStatusRejected = "rejected"
)

// 提现处理动作常量
const (
	WithdrawalActionApprove  = "approve"
	WithdrawalActionMarkPaid = "mark_paid"
	WithdrawalActionReject   = "reject"
)

// 订单确认来源常量
const (
	OrderConfirmSourceWebhook = "webhook"
	OrderConfirmSourceAdmin   = "admin"
)

// 异步任务常量
const (
	QueueDefault             = "default"
	TaskCommissionSettle     = "commission:settle"
	TaskCommissionRecompute  = "commission:recompute"
	TaskReferralLinkBackfill = "referral:link_backfill"
)

// 管理端权限常量
const (
	PermOrderManage      = "order:manage"
	PermCommissionManage = "commission:manage"
	PermWithdrawReview   = "withdraw:review"
	PermReferralManage   = "referral:manage"
	PermSettingManage    = "setting:manage"
)
