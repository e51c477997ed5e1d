package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/botmall-next/internal/constants"
	"github.com/botmall-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupUserRepositoryTest(t *testing.T) (*GormUserRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:user_repository_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewUserRepository(db), db
}

func createRepoTestUser(t *testing.T, db *gorm.DB, email string, balance decimal.Decimal) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hash",
		Role:         constants.UserRoleCTV,
		Balance:      models.NewMoneyFromDecimal(balance),
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func TestUserRepositoryAddBalance(t *testing.T) {
	repo, db := setupUserRepositoryTest(t)

	user := createRepoTestUser(t, db, "add-balance@example.com", decimal.NewFromInt(100))
	if err := repo.AddBalance(user.ID, decimal.NewFromInt(250)); err != nil {
		t.Fatalf("add balance failed: %v", err)
	}

	reloaded, err := repo.GetByID(user.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !reloaded.Balance.Decimal.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("expected balance 350, got %s", reloaded.Balance.Decimal)
	}
}

func TestUserRepositoryDeductBalanceGuardsAgainstOverdraft(t *testing.T) {
	repo, db := setupUserRepositoryTest(t)

	user := createRepoTestUser(t, db, "deduct-balance@example.com", decimal.NewFromInt(100))

	ok, err := repo.DeductBalance(user.ID, decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("deduct failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected deduct to succeed")
	}

	// 余额不足时拒绝扣减且余额不变
	ok, err = repo.DeductBalance(user.ID, decimal.NewFromInt(41))
	if err != nil {
		t.Fatalf("deduct failed: %v", err)
	}
	if ok {
		t.Fatalf("expected overdraft rejected")
	}

	reloaded, err := repo.GetByID(user.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !reloaded.Balance.Decimal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected balance 40, got %s", reloaded.Balance.Decimal)
	}
}

func TestUserRepositoryGetByEmailNormalizesLookup(t *testing.T) {
	repo, db := setupUserRepositoryTest(t)

	createRepoTestUser(t, db, "case@example.com", decimal.Zero)

	found, err := repo.GetByEmail("  Case@Example.COM ")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found == nil {
		t.Fatalf("expected user found via normalized email")
	}

	missing, err := repo.GetByEmail("absent@example.com")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing user, got %+v", missing)
	}
}
