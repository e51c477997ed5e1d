package admin

import (
	"strconv"
	"strings"

	"github.com/botmall-next/internal/constants"
	"github.com/botmall-next/internal/http/response"
	"github.com/botmall-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListOrders 管理端订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		OrderNo:  strings.TrimSpace(c.Query("order_no")),
	}
	if userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
		filter.UserID = uint(userID)
	}
	if referrerID, err := strconv.ParseUint(c.Query("referrer_id"), 10, 64); err == nil {
		filter.ReferrerID = uint(referrerID)
	}

	rows, total, err := h.OrderService.ListAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "订单列表获取失败", err)
		return
	}
	response.SuccessWithPage(c, rows, response.NewPagination(page, pageSize, total))
}

// ConfirmOrder 管理端手工确认订单
func (h *Handler) ConfirmOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "订单ID无效", nil)
		return
	}
	order, oerr := h.OrderService.Confirm(uint(id), constants.OrderConfirmSourceAdmin)
	if oerr != nil {
		respondWithMappedError(c, oerr, adminCommissionErrorRules, response.CodeInternal, "订单确认失败")
		return
	}
	response.Success(c, order)
}

// CancelOrder 管理端取消订单
func (h *Handler) CancelOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "订单ID无效", nil)
		return
	}
	order, oerr := h.OrderService.Cancel(uint(id))
	if oerr != nil {
		respondWithMappedError(c, oerr, adminCommissionErrorRules, response.CodeInternal, "订单取消失败")
		return
	}
	response.Success(c, order)
}
