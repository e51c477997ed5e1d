package admin

import (
	"strconv"
	"strings"

	"github.com/botmall-next/internal/http/response"
	"github.com/botmall-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// WithdrawalProcessRequest 提现处理请求
type WithdrawalProcessRequest struct {
	Action       string `json:"action" binding:"required"` // approve / mark_paid / reject
	RejectReason string `json:"reject_reason"`
}

// ListWithdrawals 提现申请列表
func (h *Handler) ListWithdrawals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.WithdrawalListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}
	if userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
		filter.UserID = uint(userID)
	}

	rows, total, err := h.WithdrawalService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "提现申请获取失败", err)
		return
	}
	response.SuccessWithPage(c, rows, response.NewPagination(page, pageSize, total))
}

// ProcessWithdrawal 审核提现申请
func (h *Handler) ProcessWithdrawal(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "提现记录ID无效", nil)
		return
	}
	var req WithdrawalProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	withdrawal, perr := h.WithdrawalService.Process(adminID, uint(id), req.Action, req.RejectReason)
	if perr != nil {
		respondWithMappedError(c, perr, adminWithdrawalErrorRules, response.CodeInternal, "提现处理失败")
		return
	}
	response.Success(c, withdrawal)
}
