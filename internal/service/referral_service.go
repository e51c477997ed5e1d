package service

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/botmall-next/internal/constants"
	"github.com/botmall-next/internal/logger"
	"github.com/botmall-next/internal/models"
	"github.com/botmall-next/internal/repository"
)

const referralCodeLength = 8

// ReferralService 推荐链接业务服务
type ReferralService struct {
	repo     repository.ReferralRepository
	userRepo repository.UserRepository
}

// NewReferralService 创建推荐服务
func NewReferralService(repo repository.ReferralRepository, userRepo repository.UserRepository) *ReferralService {
	return &ReferralService{repo: repo, userRepo: userRepo}
}

// ReferralClickInput 推荐点击记录输入
type ReferralClickInput struct {
	Code        string
	ClientIP    string
	UserAgent   string
	Referrer    string
	LandingPath string
}

// ReferralLinkView 推荐链接视图（携带完整推广地址）
type ReferralLinkView struct {
	models.ReferralLink
	PromotionPath string `json:"promotion_path"`
}

// CreateLinkForUser 为用户发放推荐链接。重复调用幂等返回已有链接，
// 短码全局唯一，冲突时重试生成。
func (s *ReferralService) CreateLinkForUser(userID uint) (*models.ReferralLink, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(user.Status) == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}
	if !isReferralEligibleRole(user.Role) {
		return nil, ErrRoleNotEligible
	}

	existing, err := s.repo.GetLinkByUserID(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	const maxRetry = 8
	for i := 0; i < maxRetry; i++ {
		code, genErr := generateReferralCode()
		if genErr != nil {
			return nil, genErr
		}
		link := &models.ReferralLink{
			UserID: userID,
			Code:   code,
			Status: constants.ReferralLinkStatusActive,
		}
		if err := s.repo.CreateLink(link); err != nil {
			if isUniqueViolation(err) {
				// 短码撞车或并发重复发放，重查后重试
				existing, qerr := s.repo.GetLinkByUserID(userID)
				if qerr != nil {
					return nil, qerr
				}
				if existing != nil {
					return existing, nil
				}
				continue
			}
			return nil, err
		}
		return link, nil
	}
	return nil, ErrReferralCodeInvalid
}

// SyncEligibleUsers 为所有具备分销资格但尚无链接的用户批量补发链接，
// 返回本次新发放数量。
func (s *ReferralService) SyncEligibleUsers() (int, error) {
	users, err := s.userRepo.ListByRoles(constants.ReferralEligibleRoles)
	if err != nil {
		return 0, err
	}
	existingIDs, err := s.repo.ListUserIDsWithLink()
	if err != nil {
		return 0, err
	}
	has := make(map[uint]struct{}, len(existingIDs))
	for _, id := range existingIDs {
		has[id] = struct{}{}
	}

	created := 0
	for _, user := range users {
		if _, ok := has[user.ID]; ok {
			continue
		}
		if strings.TrimSpace(user.Status) == constants.UserStatusDisabled {
			continue
		}
		if _, err := s.CreateLinkForUser(user.ID); err != nil {
			logger.Warnw("referral_link_backfill_failed", "user_id", user.ID, "error", err)
			continue
		}
		created++
	}
	return created, nil
}

// Resolve 解析推荐短码，仅返回有效链接。
func (s *ReferralService) Resolve(code string) (*models.ReferralLink, error) {
	link, err := s.repo.GetLinkByCode(code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrReferralCodeInvalid
	}
	if link.Status != constants.ReferralLinkStatusActive {
		return nil, ErrReferralLinkDisabled
	}
	return link, nil
}

// RecordClick 记录推荐点击。点击统计失败不阻断访客浏览，
// 无效短码与存储错误均只记日志。
func (s *ReferralService) RecordClick(input ReferralClickInput) {
	link, err := s.Resolve(input.Code)
	if err != nil {
		logger.Debugw("referral_click_ignored", "code", input.Code, "reason", err)
		return
	}
	click := &models.ReferralClick{
		ReferralLinkID: link.ID,
		ClientIP:       strings.TrimSpace(input.ClientIP),
		UserAgent:      truncateString(input.UserAgent, 1024),
		Referrer:       truncateString(input.Referrer, 1024),
		LandingPath:    truncateString(input.LandingPath, 512),
	}
	if err := s.repo.CreateClick(click); err != nil {
		logger.Warnw("referral_click_record_failed", "code", input.Code, "error", err)
		return
	}
	if err := s.repo.IncrementClickCount(link.ID); err != nil {
		logger.Warnw("referral_click_count_failed", "link_id", link.ID, "error", err)
	}
}

// ResolveReferrerID 解析下单归因的推荐人ID。短码无效、链接停用或
// 自我推荐时返回 nil，归因失败永不阻断下单。
func (s *ReferralService) ResolveReferrerID(code string, buyerID uint) *uint {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	link, err := s.Resolve(code)
	if err != nil {
		logger.Debugw("referral_attribution_skipped", "code", code, "reason", err)
		return nil
	}
	if link.UserID == buyerID {
		logger.Debugw("referral_self_attribution_skipped", "code", code, "user_id", buyerID)
		return nil
	}
	owner, err := s.userRepo.GetByID(link.UserID)
	if err != nil || owner == nil {
		logger.Warnw("referral_attribution_owner_missing", "code", code, "link_id", link.ID)
		return nil
	}
	if strings.TrimSpace(owner.Status) == constants.UserStatusDisabled {
		logger.Debugw("referral_attribution_owner_disabled", "code", code, "user_id", owner.ID)
		return nil
	}
	referrerID := link.UserID
	return &referrerID
}

// GetMyLink 查询用户自己的推荐链接
func (s *ReferralService) GetMyLink(userID uint) (*ReferralLinkView, error) {
	link, err := s.repo.GetLinkByUserID(userID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrNotFound
	}
	return &ReferralLinkView{
		ReferralLink:  *link,
		PromotionPath: "/r/" + link.Code,
	}, nil
}

// SetLinkStatus 管理端启停推荐链接
func (s *ReferralService) SetLinkStatus(linkID uint, status string) error {
	status = strings.TrimSpace(status)
	if status != constants.ReferralLinkStatusActive && status != constants.ReferralLinkStatusDisabled {
		return ErrReferralCodeInvalid
	}
	link, err := s.repo.GetLinkByID(linkID)
	if err != nil {
		return err
	}
	if link == nil {
		return ErrNotFound
	}
	return s.repo.UpdateLinkStatus(linkID, status)
}

// ListLinks 管理端推荐链接列表
func (s *ReferralService) ListLinks(filter repository.ReferralLinkListFilter) ([]models.ReferralLink, int64, error) {
	return s.repo.ListLinks(filter)
}

// ListClicks 管理端推荐点击记录列表
func (s *ReferralService) ListClicks(filter repository.ReferralClickListFilter) ([]models.ReferralClick, int64, error) {
	return s.repo.ListClicks(filter)
}

func isReferralEligibleRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, eligible := range constants.ReferralEligibleRoles {
		if role == eligible {
			return true
		}
	}
	return false
}

func generateReferralCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(referralCodeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

func truncateString(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}
