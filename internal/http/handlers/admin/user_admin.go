package admin

import (
	"strconv"
	"strings"

	"github.com/botmall-next/internal/http/response"
	"github.com/botmall-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// UserRoleRequest 调整用户角色请求
type UserRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UserParentRequest 调整用户上级请求
type UserParentRequest struct {
	ParentID uint `json:"parent_id"`
}

// UserStatusRequest 调整用户状态请求
type UserStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListUsers 用户列表
func (h *Handler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.UserListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Role:     strings.TrimSpace(c.Query("role")),
		Status:   strings.TrimSpace(c.Query("status")),
	}
	if parentID, err := strconv.ParseUint(c.Query("parent_id"), 10, 64); err == nil {
		filter.ParentID = uint(parentID)
	}

	rows, total, err := h.UserService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "用户列表获取失败", err)
		return
	}
	response.SuccessWithPage(c, rows, response.NewPagination(page, pageSize, total))
}

// GetUser 用户详情
func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "用户ID无效", nil)
		return
	}
	user, uerr := h.UserService.Get(uint(id))
	if uerr != nil {
		respondWithMappedError(c, uerr, adminUserErrorRules, response.CodeInternal, "用户获取失败")
		return
	}
	response.Success(c, user)
}

// SetUserRole 调整用户角色
func (h *Handler) SetUserRole(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "用户ID无效", nil)
		return
	}
	var req UserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	user, uerr := h.UserService.SetRole(uint(id), req.Role)
	if uerr != nil {
		respondWithMappedError(c, uerr, adminUserErrorRules, response.CodeInternal, "用户角色更新失败")
		return
	}
	response.Success(c, user)
}

// SetUserParent 调整用户上级
func (h *Handler) SetUserParent(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "用户ID无效", nil)
		return
	}
	var req UserParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	user, uerr := h.UserService.SetParent(uint(id), req.ParentID)
	if uerr != nil {
		respondWithMappedError(c, uerr, adminUserErrorRules, response.CodeInternal, "用户上级更新失败")
		return
	}
	response.Success(c, user)
}

// SetUserStatus 启停用户账号
func (h *Handler) SetUserStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "用户ID无效", nil)
		return
	}
	var req UserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	user, uerr := h.UserService.SetStatus(uint(id), req.Status)
	if uerr != nil {
		respondWithMappedError(c, uerr, adminUserErrorRules, response.CodeInternal, "用户状态更新失败")
		return
	}
	response.Success(c, user)
}
