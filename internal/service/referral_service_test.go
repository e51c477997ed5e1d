package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/botmall-next/internal/constants"
	"github.com/botmall-next/internal/models"
	"github.com/botmall-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupReferralServiceTest(t *testing.T) (*ReferralService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:referral_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	return NewReferralService(
		repository.NewReferralRepository(db),
		repository.NewUserRepository(db),
	), db
}

func createReferralTestUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func TestCreateLinkForUserIdempotent(t *testing.T) {
	svc, db := setupReferralServiceTest(t)

	user := createReferralTestUser(t, db, "link-idem@example.com", constants.UserRoleCTV)

	first, err := svc.CreateLinkForUser(user.ID)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if len(first.Code) != referralCodeLength {
		t.Fatalf("expected %d-char code, got %q", referralCodeLength, first.Code)
	}
	if strings.ContainsAny(first.Code, "01IO") {
		t.Fatalf("code must avoid ambiguous characters, got %q", first.Code)
	}

	second, err := svc.CreateLinkForUser(user.ID)
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if second.ID != first.ID || second.Code != first.Code {
		t.Fatalf("expected same link on repeat create, got %+v vs %+v", first, second)
	}

	var count int64
	if err := db.Model(&models.ReferralLink{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count links failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single link row, got %d", count)
	}
}

func TestCreateLinkForUserRejectsIneligibleRole(t *testing.T) {
	svc, db := setupReferralServiceTest(t)

	customer := createReferralTestUser(t, db, "link-customer@example.com", constants.UserRoleCustomer)
	if _, err := svc.CreateLinkForUser(customer.ID); err != ErrRoleNotEligible {
		t.Fatalf("expected ErrRoleNotEligible, got %v", err)
	}

	disabled := createReferralTestUser(t, db, "link-disabled@example.com", constants.UserRoleCTV)
	if err := db.Model(&models.User{}).Where("id = ?", disabled.ID).Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable user failed: %v", err)
	}
	if _, err := svc.CreateLinkForUser(disabled.ID); err != ErrUserDisabled {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
}

func TestResolveLinkStates(t *testing.T) {
	svc, db := setupReferralServiceTest(t)

	user := createReferralTestUser(t, db, "resolve@example.com", constants.UserRoleAgent)
	link, err := svc.CreateLinkForUser(user.ID)
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	resolved, err := svc.Resolve(strings.ToLower(link.Code))
	if err != nil {
		t.Fatalf("resolve must be case-insensitive: %v", err)
	}
	if resolved.ID != link.ID {
		t.Fatalf("resolved wrong link: %+v", resolved)
	}

	if _, err := svc.Resolve("NOSUCH99"); err != ErrReferralCodeInvalid {
		t.Fatalf("expected ErrReferralCodeInvalid, got %v", err)
	}

	if err := svc.SetLinkStatus(link.ID, constants.ReferralLinkStatusDisabled); err != nil {
		t.Fatalf("disable link failed: %v", err)
	}
	if _, err := svc.Resolve(link.Code); err != ErrReferralLinkDisabled {
		t.Fatalf("expected ErrReferralLinkDisabled, got %v", err)
	}
}

func TestRecordClickCountsAndStores(t *testing.T) {
	svc, db := setupReferralServiceTest(t)

	user := createReferralTestUser(t, db, "click@example.com", constants.UserRoleCTV)
	link, err := svc.CreateLinkForUser(user.ID)
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	svc.RecordClick(ReferralClickInput{
		Code:        link.Code,
		ClientIP:    "203.0.113.7",
		UserAgent:   "Mozilla/5.0",
		LandingPath: "/r/" + link.Code,
	})
	svc.RecordClick(ReferralClickInput{Code: link.Code, ClientIP: "203.0.113.8"})
	// 无效短码静默忽略
	svc.RecordClick(ReferralClickInput{Code: "NOSUCH99", ClientIP: "203.0.113.9"})

	var reloaded models.ReferralLink
	if err := db.First(&reloaded, link.ID).Error; err != nil {
		t.Fatalf("reload link failed: %v", err)
	}
	if reloaded.ClickCount != 2 {
		t.Fatalf("expected click_count 2, got %d", reloaded.ClickCount)
	}
	var clicks int64
	if err := db.Model(&models.ReferralClick{}).Where("referral_link_id = ?", link.ID).Count(&clicks).Error; err != nil {
		t.Fatalf("count clicks failed: %v", err)
	}
	if clicks != 2 {
		t.Fatalf("expected 2 click rows, got %d", clicks)
	}
}

func TestResolveReferrerIDAttributionRules(t *testing.T) {
	svc, db := setupReferralServiceTest(t)

	owner := createReferralTestUser(t, db, "attr-owner@example.com", constants.UserRoleCTV)
	buyer := createReferralTestUser(t, db, "attr-buyer@example.com", constants.UserRoleCustomer)
	link, err := svc.CreateLinkForUser(owner.ID)
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	if got := svc.ResolveReferrerID(link.Code, buyer.ID); got == nil || *got != owner.ID {
		t.Fatalf("expected attribution to owner %d, got %v", owner.ID, got)
	}
	// 自我推荐不归因
	if got := svc.ResolveReferrerID(link.Code, owner.ID); got != nil {
		t.Fatalf("expected self attribution skipped, got %v", got)
	}
	// 空短码与无效短码不归因
	if got := svc.ResolveReferrerID("", buyer.ID); got != nil {
		t.Fatalf("expected empty code skipped, got %v", got)
	}
	if got := svc.ResolveReferrerID("NOSUCH99", buyer.ID); got != nil {
		t.Fatalf("expected invalid code skipped, got %v", got)
	}
	// 链接归属人被禁用后不再归因
	if err := db.Model(&models.User{}).Where("id = ?", owner.ID).Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable owner failed: %v", err)
	}
	if got := svc.ResolveReferrerID(link.Code, buyer.ID); got != nil {
		t.Fatalf("expected disabled owner skipped, got %v", got)
	}
}

func TestSyncEligibleUsersBackfillsMissingLinks(t *testing.T) {
	svc, db := setupReferralServiceTest(t)

	withLink := createReferralTestUser(t, db, "sync-has@example.com", constants.UserRoleCTV)
	if _, err := svc.CreateLinkForUser(withLink.ID); err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	createReferralTestUser(t, db, "sync-miss-a@example.com", constants.UserRoleAgent)
	createReferralTestUser(t, db, "sync-miss-b@example.com", constants.UserRoleDistributor)
	createReferralTestUser(t, db, "sync-customer@example.com", constants.UserRoleCustomer)

	created, err := svc.SyncEligibleUsers()
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected 2 links backfilled, got %d", created)
	}

	var total int64
	if err := db.Model(&models.ReferralLink{}).Count(&total).Error; err != nil {
		t.Fatalf("count links failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 links total, got %d", total)
	}
}

func TestGetMyLinkCarriesPromotionPath(t *testing.T) {
	svc, db := setupReferralServiceTest(t)

	user := createReferralTestUser(t, db, "mylink@example.com", constants.UserRoleCTV)
	if _, err := svc.GetMyLink(user.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before issue, got %v", err)
	}
	link, err := svc.CreateLinkForUser(user.ID)
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	view, err := svc.GetMyLink(user.ID)
	if err != nil {
		t.Fatalf("get my link failed: %v", err)
	}
	if view.PromotionPath != "/r/"+link.Code {
		t.Fatalf("unexpected promotion path %q", view.PromotionPath)
	}
}
