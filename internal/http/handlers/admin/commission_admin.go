package admin

import (
	"strconv"
	"strings"
	"time"

	"github.com/botmall-next/internal/http/response"
	"github.com/botmall-next/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// MarkPaidRequest 批量发放佣金请求
type MarkPaidRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

// RecomputeRequest 佣金补偿重算请求
type RecomputeRequest struct {
	Limit int `json:"limit"`
}

// CommissionSettingRequest 佣金比例配置请求
type CommissionSettingRequest struct {
	Role           string `json:"role" binding:"required"`
	CommissionType string `json:"commission_type" binding:"required"`
	Percent        string `json:"percent" binding:"required"`
}

// ListCommissions 佣金记录列表
func (h *Handler) ListCommissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.CommissionListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}
	if userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
		filter.UserID = uint(userID)
	}
	if orderID, err := strconv.ParseUint(c.Query("order_id"), 10, 64); err == nil {
		filter.OrderID = uint(orderID)
	}
	if level, err := strconv.Atoi(c.Query("level")); err == nil {
		filter.Level = level
	}

	rows, total, err := h.CommissionService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "佣金记录获取失败", err)
		return
	}
	response.SuccessWithPage(c, rows, response.NewPagination(page, pageSize, total))
}

// MarkCommissionsPaid 批量将待结佣金标记为已发放
func (h *Handler) MarkCommissionsPaid(c *gin.Context) {
	var req MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	updated, err := h.CommissionService.MarkCommissionsPaid(req.IDs)
	if err != nil {
		respondWithMappedError(c, err, adminCommissionErrorRules, response.CodeInternal, "佣金发放失败")
		return
	}
	response.Success(c, gin.H{
		"requested": len(req.IDs),
		"updated":   updated,
	})
}

// RecomputeCommissions 触发佣金补偿重算。队列可用时异步执行。
func (h *Handler) RecomputeCommissions(c *gin.Context) {
	var req RecomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	if req.Limit <= 0 {
		req.Limit = 100
	}

	if h.QueueClient != nil && h.QueueClient.Enabled() {
		if err := h.QueueClient.EnqueueCommissionRecompute(req.Limit); err == nil {
			response.Success(c, gin.H{"enqueued": true})
			return
		}
	}
	settled, err := h.CommissionService.RecomputeMissingCommissions(req.Limit)
	if err != nil {
		respondError(c, response.CodeInternal, "佣金重算失败", err)
		return
	}
	response.Success(c, gin.H{
		"enqueued": false,
		"settled":  settled,
	})
}

// CommissionRanking 佣金排行榜
func (h *Handler) CommissionRanking(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	var from, to *time.Time
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			from = &parsed
		}
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			to = &parsed
		}
	}

	entries, err := h.CommissionService.Ranking(from, to, limit)
	if err != nil {
		respondError(c, response.CodeInternal, "佣金排行获取失败", err)
		return
	}
	response.Success(c, entries)
}

// ListCommissionSettings 佣金比例配置列表
func (h *Handler) ListCommissionSettings(c *gin.Context) {
	settings, err := h.CommissionService.ListSettings()
	if err != nil {
		respondError(c, response.CodeInternal, "佣金配置获取失败", err)
		return
	}
	response.Success(c, settings)
}

// UpsertCommissionSetting 写入佣金比例配置
func (h *Handler) UpsertCommissionSetting(c *gin.Context) {
	var req CommissionSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	percent, err := decimal.NewFromString(strings.TrimSpace(req.Percent))
	if err != nil {
		respondError(c, response.CodeBadRequest, "佣金比例无效", nil)
		return
	}

	setting, serr := h.CommissionService.UpsertSetting(req.Role, req.CommissionType, percent)
	if serr != nil {
		respondWithMappedError(c, serr, adminCommissionErrorRules, response.CodeInternal, "佣金配置保存失败")
		return
	}
	response.Success(c, setting)
}

// DeleteCommissionSetting 删除佣金比例配置
func (h *Handler) DeleteCommissionSetting(c *gin.Context) {
	role := strings.TrimSpace(c.Query("role"))
	commissionType := strings.TrimSpace(c.Query("commission_type"))
	if role == "" || commissionType == "" {
		respondError(c, response.CodeBadRequest, "请求参数无效", nil)
		return
	}
	if err := h.CommissionService.DeleteSetting(role, commissionType); err != nil {
		respondError(c, response.CodeInternal, "佣金配置删除失败", err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
