package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/botmall-next/internal/config"
	"github.com/botmall-next/internal/constants"
	"github.com/botmall-next/internal/models"
	"github.com/botmall-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupUserServiceTest(t *testing.T) (*UserService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:user_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.ReferralLink{},
		&models.ReferralClick{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	cfg := &config.Config{}
	cfg.Referral.MaxHierarchyDepth = 5

	userRepo := repository.NewUserRepository(db)
	referralService := NewReferralService(repository.NewReferralRepository(db), userRepo)
	return NewUserService(userRepo, referralService, cfg), db
}

func TestSetRoleIssuesReferralLink(t *testing.T) {
	svc, db := setupUserServiceTest(t)

	user := createCommissionTestUser(t, db, "role-up@example.com", constants.UserRoleCustomer, nil)

	updated, err := svc.SetRole(user.ID, constants.UserRoleCTV)
	if err != nil {
		t.Fatalf("set role failed: %v", err)
	}
	if updated.Role != constants.UserRoleCTV {
		t.Fatalf("expected role ctv, got %s", updated.Role)
	}

	var link models.ReferralLink
	if err := db.Where("user_id = ?", user.ID).First(&link).Error; err != nil {
		t.Fatalf("expected referral link auto-issued: %v", err)
	}
	if link.Status != constants.ReferralLinkStatusActive {
		t.Fatalf("expected active link, got %s", link.Status)
	}
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	svc, db := setupUserServiceTest(t)

	user := createCommissionTestUser(t, db, "role-bad@example.com", constants.UserRoleCustomer, nil)
	if _, err := svc.SetRole(user.ID, "superstar"); err != ErrRoleNotEligible {
		t.Fatalf("expected ErrRoleNotEligible, got %v", err)
	}
}

func TestSetParentRejectsSelfAndCycle(t *testing.T) {
	svc, db := setupUserServiceTest(t)

	a := createCommissionTestUser(t, db, "parent-a@example.com", constants.UserRoleAgent, nil)
	b := createCommissionTestUser(t, db, "parent-b@example.com", constants.UserRoleCTV, nil)
	c := createCommissionTestUser(t, db, "parent-c@example.com", constants.UserRoleCTV, nil)

	if _, err := svc.SetParent(a.ID, a.ID); err != ErrParentInvalid {
		t.Fatalf("expected self parent rejected, got %v", err)
	}

	// a <- b <- c 合法链
	if _, err := svc.SetParent(b.ID, a.ID); err != nil {
		t.Fatalf("set parent b->a failed: %v", err)
	}
	if _, err := svc.SetParent(c.ID, b.ID); err != nil {
		t.Fatalf("set parent c->b failed: %v", err)
	}

	// a 的上级设为 c 会形成 a -> c -> b -> a 的环
	if _, err := svc.SetParent(a.ID, c.ID); err != ErrParentInvalid {
		t.Fatalf("expected cycle rejected, got %v", err)
	}
	// 直接互指同样拒绝
	if _, err := svc.SetParent(a.ID, b.ID); err != ErrParentInvalid {
		t.Fatalf("expected two-node cycle rejected, got %v", err)
	}
}

func TestSetParentClearAndReassign(t *testing.T) {
	svc, db := setupUserServiceTest(t)

	parent := createCommissionTestUser(t, db, "reassign-parent@example.com", constants.UserRoleAgent, nil)
	child := createCommissionTestUser(t, db, "reassign-child@example.com", constants.UserRoleCTV, &parent.ID)

	cleared, err := svc.SetParent(child.ID, 0)
	if err != nil {
		t.Fatalf("clear parent failed: %v", err)
	}
	if cleared.ParentID != nil {
		t.Fatalf("expected parent cleared, got %v", cleared.ParentID)
	}

	reassigned, err := svc.SetParent(child.ID, parent.ID)
	if err != nil {
		t.Fatalf("reassign parent failed: %v", err)
	}
	if reassigned.ParentID == nil || *reassigned.ParentID != parent.ID {
		t.Fatalf("expected parent %d, got %v", parent.ID, reassigned.ParentID)
	}

	if _, err := svc.SetParent(child.ID, 9999); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing parent, got %v", err)
	}
}

func TestSetStatusToggles(t *testing.T) {
	svc, db := setupUserServiceTest(t)

	user := createCommissionTestUser(t, db, "status-user@example.com", constants.UserRoleCTV, nil)

	disabled, err := svc.SetStatus(user.ID, constants.UserStatusDisabled)
	if err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if disabled.Status != constants.UserStatusDisabled {
		t.Fatalf("expected disabled, got %s", disabled.Status)
	}

	if _, err := svc.SetStatus(user.ID, "frozen"); err != ErrNotFound {
		t.Fatalf("expected unknown status rejected, got %v", err)
	}

	enabled, err := svc.SetStatus(user.ID, constants.UserStatusActive)
	if err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if enabled.Status != constants.UserStatusActive {
		t.Fatalf("expected active, got %s", enabled.Status)
	}
}
