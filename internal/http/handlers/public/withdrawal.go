package public

import (
	"strconv"
	"strings"

	"github.com/botmall-next/internal/http/response"
	"github.com/botmall-next/internal/repository"
	"github.com/botmall-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WithdrawalApplyRequest 提现申请请求
type WithdrawalApplyRequest struct {
	Amount        string `json:"amount" binding:"required"`
	BankName      string `json:"bank_name" binding:"required"`
	BankAccount   string `json:"bank_account" binding:"required"`
	AccountHolder string `json:"account_holder" binding:"required"`
}

// ApplyWithdrawal 提交提现申请
func (h *Handler) ApplyWithdrawal(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req WithdrawalApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		respondError(c, response.CodeBadRequest, "提现金额无效", nil)
		return
	}

	withdrawal, err := h.WithdrawalService.Apply(uid, service.WithdrawalApplyInput{
		Amount:        amount,
		BankName:      req.BankName,
		BankAccount:   req.BankAccount,
		AccountHolder: req.AccountHolder,
	})
	if err != nil {
		respondWithMappedError(c, err, withdrawalErrorRules, response.CodeInternal, "提现申请失败")
		return
	}
	response.Success(c, withdrawal)
}

// ListMyWithdrawals 查询我的提现记录
func (h *Handler) ListMyWithdrawals(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	rows, total, err := h.WithdrawalService.ListUserWithdrawals(uid, repository.WithdrawalListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "提现记录获取失败", err)
		return
	}
	response.SuccessWithPage(c, rows, response.NewPagination(page, pageSize, total))
}

// GetMyWithdrawal 查询我的单笔提现记录
func (h *Handler) GetMyWithdrawal(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "提现记录ID无效", nil)
		return
	}
	withdrawal, werr := h.WithdrawalService.GetUserWithdrawal(uid, uint(id))
	if werr != nil {
		respondWithMappedError(c, werr, withdrawalErrorRules, response.CodeInternal, "提现记录获取失败")
		return
	}
	response.Success(c, withdrawal)
}
