package public

import (
	"github.com/botmall-next/internal/http/response"
	"github.com/botmall-next/internal/service"

	"github.com/gin-gonic/gin"
)

// TrackClickRequest 推荐点击记录请求
type TrackClickRequest struct {
	Code        string `json:"code" binding:"required"`
	LandingPath string `json:"landing_path"`
	Referrer    string `json:"referrer"`
}

// TrackReferralClick 记录推荐点击。点击统计永不向访客报错。
func (h *Handler) TrackReferralClick(c *gin.Context) {
	var req TrackClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	h.ReferralService.RecordClick(service.ReferralClickInput{
		Code:        req.Code,
		ClientIP:    c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
		Referrer:    req.Referrer,
		LandingPath: req.LandingPath,
	})
	response.Success(c, gin.H{"ok": true})
}

// ResolveReferralCode 解析推荐短码，返回推荐人公开信息。
func (h *Handler) ResolveReferralCode(c *gin.Context) {
	code := c.Param("code")
	link, err := h.ReferralService.Resolve(code)
	if err != nil {
		respondWithMappedError(c, err, referralErrorRules, response.CodeInternal, "推荐码解析失败")
		return
	}
	response.Success(c, gin.H{
		"code":         link.Code,
		"referrer_name": link.User.DisplayName,
	})
}

// CreateMyReferralLink 用户为自己开通推荐链接（幂等）
func (h *Handler) CreateMyReferralLink(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	link, err := h.ReferralService.CreateLinkForUser(uid)
	if err != nil {
		respondWithMappedError(c, err, referralErrorRules, response.CodeInternal, "推荐链接开通失败")
		return
	}
	response.Success(c, link)
}

// GetMyReferralLink 查询我的推荐链接
func (h *Handler) GetMyReferralLink(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	view, err := h.ReferralService.GetMyLink(uid)
	if err != nil {
		respondWithMappedError(c, err, referralErrorRules, response.CodeInternal, "推荐链接获取失败")
		return
	}
	response.Success(c, view)
}
