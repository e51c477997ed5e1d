package public

import (
	"strconv"
	"strings"

	"github.com/botmall-next/internal/constants"
	"github.com/botmall-next/internal/http/response"
	"github.com/botmall-next/internal/repository"
	"github.com/botmall-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OrderCreateRequest 下单请求
type OrderCreateRequest struct {
	TotalPrice   string `json:"total_price" binding:"required"`
	ReferralCode string `json:"referral_code"`
}

// PaymentCallbackRequest 支付回调请求
type PaymentCallbackRequest struct {
	OrderNo string `json:"order_no" binding:"required"`
	Status  string `json:"status"`
}

// CreateOrder 创建订单
func (h *Handler) CreateOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req OrderCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	total, err := decimal.NewFromString(strings.TrimSpace(req.TotalPrice))
	if err != nil {
		respondError(c, response.CodeBadRequest, "订单金额无效", nil)
		return
	}

	order, oerr := h.OrderService.Create(uid, service.OrderCreateInput{
		TotalPrice:   total,
		ReferralCode: req.ReferralCode,
	})
	if oerr != nil {
		respondWithMappedError(c, oerr, orderErrorRules, response.CodeInternal, "订单创建失败")
		return
	}
	response.Success(c, order)
}

// ListMyOrders 查询我的订单列表
func (h *Handler) ListMyOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	rows, total, err := h.OrderService.ListUserOrders(uid, repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "订单列表获取失败", err)
		return
	}
	response.SuccessWithPage(c, rows, response.NewPagination(page, pageSize, total))
}

// GetMyOrder 查询我的订单详情
func (h *Handler) GetMyOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "订单ID无效", nil)
		return
	}
	order, oerr := h.OrderService.GetUserOrder(uid, uint(id))
	if oerr != nil {
		respondWithMappedError(c, oerr, orderErrorRules, response.CodeInternal, "订单获取失败")
		return
	}
	response.Success(c, order)
}

// PaymentCallback 支付网关回调，确认订单并触发佣金结算。
// 重复回调幂等返回成功。
func (h *Handler) PaymentCallback(c *gin.Context) {
	var req PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	// 仅支付成功状态触发确认，其余状态仅确认收到
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != "" && status != "paid" && status != "success" {
		response.Success(c, gin.H{"order_no": req.OrderNo, "handled": false})
		return
	}
	order, err := h.OrderService.ConfirmByOrderNo(req.OrderNo, constants.OrderConfirmSourceWebhook)
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "订单确认失败")
		return
	}
	response.Success(c, gin.H{
		"order_no": order.OrderNo,
		"status":   order.Status,
	})
}
