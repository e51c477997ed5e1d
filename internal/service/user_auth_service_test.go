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

func setupUserAuthServiceTest(t *testing.T) (*UserAuthService, *ReferralService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:user_auth_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	cfg.UserJWT.SecretKey = "user-jwt-test-secret-0123456789abcdef"
	cfg.UserJWT.ExpireHours = 24

	userRepo := repository.NewUserRepository(db)
	referralService := NewReferralService(repository.NewReferralRepository(db), userRepo)
	return NewUserAuthService(cfg, userRepo, referralService), referralService, db
}

func TestUserRegisterAndLogin(t *testing.T) {
	svc, _, _ := setupUserAuthServiceTest(t)

	user, token, expiresAt, err := svc.Register("New.User@Example.com", "strongpass1", "小新", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "new.user@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != constants.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", user.Role)
	}
	if token == "" || !expiresAt.After(time.Now()) {
		t.Fatalf("expected valid token, got %q expires %v", token, expiresAt)
	}

	claims, err := svc.ParseUserJWT(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected claims for user %d, got %d", user.ID, claims.UserID)
	}

	logged, _, _, err := svc.Login("new.user@example.com", "strongpass1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("expected same user, got %d", logged.ID)
	}

	if _, _, _, err := svc.Login("new.user@example.com", "wrongpass99"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, _, err := svc.Login("missing@example.com", "whatever123"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestUserRegisterValidation(t *testing.T) {
	svc, _, _ := setupUserAuthServiceTest(t)

	if _, _, _, err := svc.Register("dup@example.com", "strongpass1", "", ""); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, _, _, err := svc.Register("dup@example.com", "strongpass2", "", ""); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, _, _, err := svc.Register("short@example.com", "short", "", ""); err != ErrPasswordTooWeak {
		t.Fatalf("expected ErrPasswordTooWeak, got %v", err)
	}
}

func TestUserRegisterBindsReferralParent(t *testing.T) {
	svc, referralService, db := setupUserAuthServiceTest(t)

	promoter := createReferralTestUser(t, db, "promoter@example.com", constants.UserRoleCTV)
	link, err := referralService.CreateLinkForUser(promoter.ID)
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	user, _, _, err := svc.Register("invited@example.com", "strongpass1", "", link.Code)
	if err != nil {
		t.Fatalf("register with code failed: %v", err)
	}
	if user.ParentID == nil || *user.ParentID != promoter.ID {
		t.Fatalf("expected parent bound to promoter %d, got %v", promoter.ID, user.ParentID)
	}

	// 无效推荐码不阻断注册，也不绑定上级
	orphan, _, _, err := svc.Register("orphan@example.com", "strongpass1", "", "NOSUCH99")
	if err != nil {
		t.Fatalf("register with bad code failed: %v", err)
	}
	if orphan.ParentID != nil {
		t.Fatalf("expected no parent for bad code, got %v", orphan.ParentID)
	}
}
