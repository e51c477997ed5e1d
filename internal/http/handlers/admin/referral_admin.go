package admin

import (
	"strconv"
	"strings"

	"github.com/botmall-next/internal/http/response"
	"github.com/botmall-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ReferralLinkStatusRequest 推荐链接状态请求
type ReferralLinkStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListReferralLinks 推荐链接列表
func (h *Handler) ListReferralLinks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.ReferralLinkListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     strings.TrimSpace(c.Query("code")),
		Status:   strings.TrimSpace(c.Query("status")),
		Keyword:  strings.TrimSpace(c.Query("keyword")),
	}
	if userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
		filter.UserID = uint(userID)
	}

	rows, total, err := h.ReferralService.ListLinks(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "推荐链接获取失败", err)
		return
	}
	response.SuccessWithPage(c, rows, response.NewPagination(page, pageSize, total))
}

// SetReferralLinkStatus 启停推荐链接
func (h *Handler) SetReferralLinkStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "推荐链接ID无效", nil)
		return
	}
	var req ReferralLinkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	if serr := h.ReferralService.SetLinkStatus(uint(id), req.Status); serr != nil {
		respondWithMappedError(c, serr, adminReferralErrorRules, response.CodeInternal, "推荐链接状态更新失败")
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// SyncReferralLinks 为具备分销资格的用户批量补发推荐链接。
// 队列可用时异步执行。
func (h *Handler) SyncReferralLinks(c *gin.Context) {
	if h.QueueClient != nil && h.QueueClient.Enabled() {
		if err := h.QueueClient.EnqueueReferralLinkBackfill(); err == nil {
			response.Success(c, gin.H{"enqueued": true})
			return
		}
	}
	created, err := h.ReferralService.SyncEligibleUsers()
	if err != nil {
		respondError(c, response.CodeInternal, "推荐链接补发失败", err)
		return
	}
	response.Success(c, gin.H{
		"enqueued": false,
		"created":  created,
	})
}

// ListReferralClicks 推荐点击记录列表
func (h *Handler) ListReferralClicks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.ReferralClickListFilter{
		Page:     page,
		PageSize: pageSize,
	}
	if linkID, err := strconv.ParseUint(c.Query("link_id"), 10, 64); err == nil {
		filter.ReferralLinkID = uint(linkID)
	}

	rows, total, err := h.ReferralService.ListClicks(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "点击记录获取失败", err)
		return
	}
	response.SuccessWithPage(c, rows, response.NewPagination(page, pageSize, total))
}
