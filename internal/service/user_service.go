package service

import (
	"strings"

	"github.com/botmall-next/internal/config"
	"github.com/botmall-next/internal/constants"
	"github.com/botmall-next/internal/logger"
	"github.com/botmall-next/internal/models"
	"github.com/botmall-next/internal/repository"
)

// UserService 用户管理服务（管理端）
type UserService struct {
	repo            repository.UserRepository
	referralService *ReferralService
	cfg             *config.Config
}

// NewUserService 创建用户管理服务
func NewUserService(repo repository.UserRepository, referralService *ReferralService, cfg *config.Config) *UserService {
	return &UserService{repo: repo, referralService: referralService, cfg: cfg}
}

// List 用户列表
func (s *UserService) List(filter repository.UserListFilter) ([]models.User, int64, error) {
	return s.repo.List(filter)
}

// Get 查询用户
func (s *UserService) Get(id uint) (*models.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// SetRole 调整用户角色。升级为分销角色时自动补发推荐链接。
func (s *UserService) SetRole(userID uint, role string) (*models.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !isValidUserRole(role) {
		return nil, ErrRoleNotEligible
	}
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	user.Role = role
	if err := s.repo.Update(user); err != nil {
		return nil, err
	}

	if isReferralEligibleRole(role) && s.referralService != nil {
		if _, err := s.referralService.CreateLinkForUser(userID); err != nil {
			logger.Warnw("referral_link_issue_on_role_change_failed", "user_id", userID, "error", err)
		}
	}
	return user, nil
}

// SetParent 调整用户上级。上级不可为自己，且不可在上级链
// 的可达范围内形成环。parentID 为 0 表示摘除上级。
func (s *UserService) SetParent(userID, parentID uint) (*models.User, error) {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	if parentID == 0 {
		user.ParentID = nil
		if err := s.repo.Update(user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if parentID == userID {
		return nil, ErrParentInvalid
	}

	parent, err := s.repo.GetByID(parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrNotFound
	}

	// 沿新上级的祖先链检查是否会回到当前用户
	maxDepth := s.cfg.Referral.MaxHierarchyDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}
	visited := map[uint]struct{}{userID: {}}
	current := parent
	for depth := 0; depth < maxDepth && current != nil; depth++ {
		if _, seen := visited[current.ID]; seen {
			return nil, ErrParentInvalid
		}
		visited[current.ID] = struct{}{}
		if current.ParentID == nil {
			break
		}
		current, err = s.repo.GetByID(*current.ParentID)
		if err != nil {
			return nil, err
		}
	}

	user.ParentID = &parentID
	if err := s.repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetStatus 启停用户账号
func (s *UserService) SetStatus(userID uint, status string) (*models.User, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != constants.UserStatusActive && status != constants.UserStatusDisabled {
		return nil, ErrNotFound
	}
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	user.Status = status
	if err := s.repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func isValidUserRole(role string) bool {
	switch role {
	case constants.UserRoleCustomer,
		constants.UserRoleCTV,
		constants.UserRoleAgent,
		constants.UserRoleMasterAgent,
		constants.UserRoleDistributor,
		constants.UserRoleAdmin:
		return true
	}
	return false
}
