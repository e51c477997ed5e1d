package authz

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	casbinTableName = "casbin_rule"
	adminSubjectFmt = "admin:%d"
	rolePrefix      = "role:"
	roleAnchor      = "role:__anchor__"
)

const defaultRBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Policy 权限策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service Casbin 授权服务
// 统一封装策略加载、授权判定与策略管理逻辑
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}

	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}

	m, err := model.NewModelFromString(defaultRBACModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}

	return &Service{enforcer: enforcer}, nil
}

// Enforce 执行授权判断
func (s *Service) Enforce(sub, obj, act string) (bool, error) {
	if s == nil || s.enforcer == nil {
		return false, fmt.Errorf("authz service unavailable")
	}
	return s.enforcer.Enforce(strings.TrimSpace(sub), NormalizeObject(obj), NormalizeAction(act))
}

// EnforceAdmin 按管理员 ID 判定授权
func (s *Service) EnforceAdmin(adminID uint, obj, act string) (bool, error) {
	return s.Enforce(SubjectForAdmin(adminID), obj, act)
}

// ReloadPolicy 重新加载策略
func (s *Service) ReloadPolicy() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}
	return s.enforcer.LoadPolicy()
}

// EnsureRole 确保角色存在
func (s *Service) EnsureRole(role string) (string, error) {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return "", err
	}
	if s == nil || s.enforcer == nil {
		return "", fmt.Errorf("authz service unavailable")
	}
	if normalized == roleAnchor {
		return "", fmt.Errorf("reserved role is not allowed")
	}

	exists, err := s.enforcer.HasNamedGroupingPolicy("g", normalized, roleAnchor)
	if err != nil {
		return "", fmt.Errorf("check role failed: %w", err)
	}
	if exists {
		return normalized, nil
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", normalized, roleAnchor); err != nil {
		return "", fmt.Errorf("create role failed: %w", err)
	}
	return normalized, nil
}

// AddRolePolicy 为角色追加策略
func (s *Service) AddRolePolicy(role string, policy Policy) error {
	normalized, err := s.EnsureRole(role)
	if err != nil {
		return err
	}
	_, err = s.enforcer.AddPolicy(normalized, NormalizeObject(policy.Object), NormalizeAction(policy.Action))
	if err != nil {
		return fmt.Errorf("add role policy failed: %w", err)
	}
	return nil
}

// AddRoleInheritance 角色继承（role 继承 parent 的策略）
func (s *Service) AddRoleInheritance(role, parent string) error {
	normalizedRole, err := s.EnsureRole(role)
	if err != nil {
		return err
	}
	normalizedParent, err := s.EnsureRole(parent)
	if err != nil {
		return err
	}
	_, err = s.enforcer.AddNamedGroupingPolicy("g", normalizedRole, normalizedParent)
	if err != nil {
		return fmt.Errorf("add role inheritance failed: %w", err)
	}
	return nil
}

// AssignAdminRole 为管理员绑定角色
func (s *Service) AssignAdminRole(adminID uint, role string) error {
	normalized, err := s.EnsureRole(role)
	if err != nil {
		return err
	}
	_, err = s.enforcer.AddNamedGroupingPolicy("g", SubjectForAdmin(adminID), normalized)
	if err != nil {
		return fmt.Errorf("assign admin role failed: %w", err)
	}
	return nil
}

// RevokeAdminRole 解绑管理员角色
func (s *Service) RevokeAdminRole(adminID uint, role string) error {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}
	_, err = s.enforcer.RemoveNamedGroupingPolicy("g", SubjectForAdmin(adminID), normalized)
	if err != nil {
		return fmt.Errorf("revoke admin role failed: %w", err)
	}
	return nil
}

// ListAdminRoles 列出管理员已绑定角色
func (s *Service) ListAdminRoles(adminID uint) ([]string, error) {
	if s == nil || s.enforcer == nil {
		return nil, fmt.Errorf("authz service unavailable")
	}
	roles, err := s.enforcer.GetRolesForUser(SubjectForAdmin(adminID))
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(roles))
	for _, role := range roles {
		if role == roleAnchor {
			continue
		}
		result = append(result, strings.TrimPrefix(role, rolePrefix))
	}
	return result, nil
}

// SubjectForAdmin 管理员主体标识
func SubjectForAdmin(adminID uint) string {
	return fmt.Sprintf(adminSubjectFmt, adminID)
}

// NormalizeRole 归一化角色名（统一加 role: 前缀）
func NormalizeRole(role string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(role))
	trimmed = strings.TrimPrefix(trimmed, rolePrefix)
	if trimmed == "" {
		return "", fmt.Errorf("role is empty")
	}
	return rolePrefix + trimmed, nil
}

// NormalizeObject 归一化资源路径，策略对象不携带 API 版本前缀
func NormalizeObject(obj string) string {
	trimmed := strings.TrimSpace(obj)
	if trimmed == "" {
		return "/"
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "/api/v1")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

// NormalizeAction 归一化动作
func NormalizeAction(act string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(act))
	if trimmed == "" {
		return "GET"
	}
	return trimmed
}
