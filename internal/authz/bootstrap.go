package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     "referral_operations",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/referral-links", Action: "*"},
				{Object: "/admin/referral-links/:id/status", Action: "*"},
				{Object: "/admin/referral-links/sync", Action: "POST"},
				{Object: "/admin/referral-clicks", Action: "GET"},
				{Object: "/admin/commission-settings", Action: "*"},
				{Object: "/admin/users/:id/role", Action: "PUT"},
				{Object: "/admin/users/:id/parent", Action: "PUT"},
			},
		},
		{
			Role:     "finance",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/commissions", Action: "GET"},
				{Object: "/admin/commissions/mark-paid", Action: "POST"},
				{Object: "/admin/commissions/recompute", Action: "POST"},
				{Object: "/admin/commissions/ranking", Action: "GET"},
				{Object: "/admin/withdrawals", Action: "GET"},
				{Object: "/admin/withdrawals/:id/process", Action: "POST"},
				{Object: "/admin/orders", Action: "GET"},
				{Object: "/admin/orders/:id/confirm", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色与策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}
	for _, seed := range BuiltinRoleSeeds() {
		if _, err := s.EnsureRole(seed.Role); err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			if err := s.AddRoleInheritance(seed.Role, parent); err != nil {
				return err
			}
		}
		for _, policy := range seed.Policies {
			if err := s.AddRolePolicy(seed.Role, policy); err != nil {
				return err
			}
		}
	}
	return s.ReloadPolicy()
}
