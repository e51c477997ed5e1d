package admin

import (
	"github.com/botmall-next/internal/http/response"
	"github.com/botmall-next/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 管理员登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 管理员登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		respondWithMappedError(c, err, []mappedHandlerError{
			{target: service.ErrInvalidCredentials, code: response.CodeBadRequest, msg: "用户名或密码错误"},
		}, response.CodeInternal, "登录失败")
		return
	}
	response.Success(c, gin.H{
		"admin":      admin,
		"token":      token,
		"expires_at": expiresAt,
	})
}

// Profile 查询当前管理员信息
func (h *Handler) Profile(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	admin, err := h.AuthService.GetAdminByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "管理员信息获取失败", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "管理员不存在", nil)
		return
	}
	roles, err := h.AuthzService.ListAdminRoles(adminID)
	if err != nil {
		requestLog(c).Warnw("admin_profile_list_roles_failed", "admin_id", adminID, "error", err)
		roles = []string{}
	}
	response.Success(c, gin.H{
		"admin": admin,
		"roles": roles,
	})
}
