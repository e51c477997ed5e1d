package admin

import (
	"errors"

	"github.com/botmall-next/internal/http/response"
	"github.com/botmall-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var adminCommonErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "记录不存在"},
}

var adminCommissionErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "记录不存在"},
	{target: service.ErrCommissionStatusInvalid, code: response.CodeBadRequest, msg: "佣金状态不允许该操作"},
	{target: service.ErrCommissionPercentRange, code: response.CodeBadRequest, msg: "佣金比例超出允许范围"},
	{target: service.ErrOrderStatusInvalid, code: response.CodeBadRequest, msg: "订单状态不允许该操作"},
}

var adminWithdrawalErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "提现记录不存在"},
	{target: service.ErrWithdrawStatusInvalid, code: response.CodeBadRequest, msg: "提现状态不允许该操作"},
}

var adminUserErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "用户不存在"},
	{target: service.ErrRoleNotEligible, code: response.CodeBadRequest, msg: "角色无效"},
	{target: service.ErrParentInvalid, code: response.CodeBadRequest, msg: "上级设置无效"},
}

var adminReferralErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "推荐链接不存在"},
	{target: service.ErrReferralCodeInvalid, code: response.CodeBadRequest, msg: "推荐链接状态无效"},
	{target: service.ErrRoleNotEligible, code: response.CodeBadRequest, msg: "当前角色无分销资格"},
	{target: service.ErrUserDisabled, code: response.CodeBadRequest, msg: "账号已被禁用"},
}
