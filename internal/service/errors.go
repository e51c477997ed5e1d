package service

import "errors"

// 业务错误定义，handler 层据此映射响应码。
var (
	ErrNotFound           = errors.New("记录不存在")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrEmailTaken         = errors.New("邮箱已被注册")
	ErrUserDisabled       = errors.New("账号已被禁用")
	ErrPasswordTooWeak    = errors.New("密码强度不足")

	ErrRoleNotEligible      = errors.New("角色无分销资格")
	ErrReferralCodeInvalid  = errors.New("推荐码无效")
	ErrReferralLinkDisabled = errors.New("推荐链接已停用")
	ErrParentInvalid        = errors.New("上级设置无效")

	ErrOrderStatusInvalid = errors.New("订单状态不允许该操作")

	ErrCommissionStatusInvalid = errors.New("佣金状态不允许该操作")
	ErrCommissionPercentRange  = errors.New("佣金比例超出允许范围")

	ErrWithdrawAmountInvalid  = errors.New("提现金额无效")
	ErrWithdrawInsufficient   = errors.New("可提现余额不足")
	ErrWithdrawAlreadyPending = errors.New("存在待审核的提现申请")
	ErrWithdrawStatusInvalid  = errors.New("提现状态不允许该操作")
)
