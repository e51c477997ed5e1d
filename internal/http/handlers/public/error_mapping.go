package public

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

var userAuthErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCredentials, code: response.CodeBadRequest, msg: "邮箱或密码错误"},
	{target: service.ErrEmailTaken, code: response.CodeConflict, msg: "邮箱已被注册"},
	{target: service.ErrPasswordTooWeak, code: response.CodeBadRequest, msg: "密码强度不足"},
	{target: service.ErrUserDisabled, code: response.CodeForbidden, msg: "账号已被禁用"},
}

var referralErrorRules = []mappedHandlerError{
	{target: service.ErrRoleNotEligible, code: response.CodeForbidden, msg: "当前角色无分销资格"},
	{target: service.ErrReferralCodeInvalid, code: response.CodeNotFound, msg: "推荐码无效"},
	{target: service.ErrReferralLinkDisabled, code: response.CodeNotFound, msg: "推荐链接已停用"},
	{target: service.ErrUserDisabled, code: response.CodeForbidden, msg: "账号已被禁用"},
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "记录不存在"},
}

var orderErrorRules = []mappedHandlerError{
	{target: service.ErrOrderStatusInvalid, code: response.CodeBadRequest, msg: "订单状态不允许该操作"},
	{target: service.ErrUserDisabled, code: response.CodeForbidden, msg: "账号已被禁用"},
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "订单不存在"},
}

var withdrawalErrorRules = []mappedHandlerError{
	{target: service.ErrWithdrawAmountInvalid, code: response.CodeBadRequest, msg: "提现金额或收款信息无效"},
	{target: service.ErrWithdrawInsufficient, code: response.CodeBadRequest, msg: "可提现余额不足"},
	{target: service.ErrWithdrawAlreadyPending, code: response.CodeConflict, msg: "存在待审核的提现申请"},
	{target: service.ErrUserDisabled, code: response.CodeForbidden, msg: "账号已被禁用"},
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "提现记录不存在"},
}
