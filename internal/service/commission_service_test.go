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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCommissionServiceTest(t *testing.T) (*CommissionService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:commission_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.Commission{},
		&models.CommissionSetting{},
		&models.ReferralLink{},
		&models.ReferralClick{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	cfg := &config.Config{}
	cfg.Referral.FallbackRetailPercent = 10
	cfg.Referral.MaxHierarchyDepth = 5

	svc := NewCommissionService(
		repository.NewCommissionRepository(db),
		repository.NewCommissionSettingRepository(db),
		repository.NewUserRepository(db),
		repository.NewOrderRepository(db),
		repository.NewReferralRepository(db),
		cfg,
	)
	return svc, db
}

func createCommissionTestUser(t *testing.T, db *gorm.DB, email, role string, parentID *uint) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		ParentID:     parentID,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func createConfirmedTestOrder(t *testing.T, db *gorm.DB, userID uint, referrerID *uint, total decimal.Decimal) *models.Order {
	t.Helper()
	now := time.Now()
	order := &models.Order{
		OrderNo:     fmt.Sprintf("BM%d", time.Now().UnixNano()),
		UserID:      userID,
		ReferrerID:  referrerID,
		Status:      constants.OrderStatusConfirmed,
		TotalPrice:  models.NewMoneyFromDecimal(total),
		ConfirmedAt: &now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func createTestSetting(t *testing.T, db *gorm.DB, role, commissionType string, percent float64) {
	t.Helper()
	setting := &models.CommissionSetting{
		Role:           role,
		CommissionType: commissionType,
		Percent:        models.NewMoneyFromDecimal(decimal.NewFromFloat(percent)),
	}
	if err := db.Create(setting).Error; err != nil {
		t.Fatalf("create commission setting failed: %v", err)
	}
}

func loadOrderCommissions(t *testing.T, db *gorm.DB, orderID uint) []models.Commission {
	t.Helper()
	var rows []models.Commission
	if err := db.Where("order_id = ?", orderID).Order("level ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load commissions failed: %v", err)
	}
	return rows
}

func loadUserBalance(t *testing.T, db *gorm.DB, userID uint) decimal.Decimal {
	t.Helper()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	return user.Balance.Decimal
}

func TestSettleOrderWithoutReferrerCreatesNothing(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	buyer := createCommissionTestUser(t, db, "buyer-noref@example.com", constants.UserRoleCustomer, nil)
	order := createConfirmedTestOrder(t, db, buyer.ID, nil, decimal.NewFromInt(100000))

	if err := svc.SettleOrder(order.ID); err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if rows := loadOrderCommissions(t, db, order.ID); len(rows) != 0 {
		t.Fatalf("expected no commissions, got %d", len(rows))
	}
}

func TestSettleOrderUsesFallbackRetailPercent(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	referrer := createCommissionTestUser(t, db, "ctv-fallback@example.com", constants.UserRoleCTV, nil)
	buyer := createCommissionTestUser(t, db, "buyer-fallback@example.com", constants.UserRoleCustomer, &referrer.ID)
	order := createConfirmedTestOrder(t, db, buyer.ID, &referrer.ID, decimal.NewFromInt(100000))

	if err := svc.SettleOrder(order.ID); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	rows := loadOrderCommissions(t, db, order.ID)
	if len(rows) != 1 {
		t.Fatalf("expected 1 commission, got %d", len(rows))
	}
	if rows[0].Level != 1 || rows[0].UserID != referrer.ID {
		t.Fatalf("unexpected commission row: %+v", rows[0])
	}
	if !rows[0].Amount.Decimal.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected fallback 10%% = 10000, got %s", rows[0].Amount.Decimal)
	}
	if !loadUserBalance(t, db, referrer.ID).Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected balance credited 10000, got %s", loadUserBalance(t, db, referrer.ID))
	}
}

func TestSettleOrderMultiLevelPercents(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	createTestSetting(t, db, constants.UserRoleCTV, constants.CommissionTypeRetail, 10)
	createTestSetting(t, db, constants.UserRoleAgent, constants.CommissionTypeOverride, 5)

	agent := createCommissionTestUser(t, db, "agent-ml@example.com", constants.UserRoleAgent, nil)
	ctv := createCommissionTestUser(t, db, "ctv-ml@example.com", constants.UserRoleCTV, &agent.ID)
	buyer := createCommissionTestUser(t, db, "buyer-ml@example.com", constants.UserRoleCustomer, &ctv.ID)
	order := createConfirmedTestOrder(t, db, buyer.ID, &ctv.ID, decimal.NewFromInt(100000))

	if err := svc.SettleOrder(order.ID); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	rows := loadOrderCommissions(t, db, order.ID)
	if len(rows) != 2 {
		t.Fatalf("expected 2 commissions, got %d", len(rows))
	}
	if rows[0].UserID != ctv.ID || !rows[0].Amount.Decimal.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("unexpected level 1 commission: %+v", rows[0])
	}
	if rows[1].UserID != agent.ID || !rows[1].Amount.Decimal.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("unexpected level 2 commission: %+v", rows[1])
	}
}

func TestSettleOrderSkipsUnconfiguredOverrideLevels(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	createTestSetting(t, db, constants.UserRoleCTV, constants.CommissionTypeRetail, 10)
	// agent 未配置 override，不应产生第2级佣金

	agent := createCommissionTestUser(t, db, "agent-noovr@example.com", constants.UserRoleAgent, nil)
	ctv := createCommissionTestUser(t, db, "ctv-noovr@example.com", constants.UserRoleCTV, &agent.ID)
	buyer := createCommissionTestUser(t, db, "buyer-noovr@example.com", constants.UserRoleCustomer, &ctv.ID)
	order := createConfirmedTestOrder(t, db, buyer.ID, &ctv.ID, decimal.NewFromInt(50000))

	if err := svc.SettleOrder(order.ID); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	rows := loadOrderCommissions(t, db, order.ID)
	if len(rows) != 1 {
		t.Fatalf("expected only level 1 commission, got %d", len(rows))
	}
	if rows[0].UserID != ctv.ID {
		t.Fatalf("unexpected beneficiary: %+v", rows[0])
	}
	if !loadUserBalance(t, db, agent.ID).IsZero() {
		t.Fatalf("expected agent balance untouched, got %s", loadUserBalance(t, db, agent.ID))
	}
}

func TestSettleOrderIdempotent(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	referrer := createCommissionTestUser(t, db, "ctv-idem@example.com", constants.UserRoleCTV, nil)
	buyer := createCommissionTestUser(t, db, "buyer-idem@example.com", constants.UserRoleCustomer, &referrer.ID)
	order := createConfirmedTestOrder(t, db, buyer.ID, &referrer.ID, decimal.NewFromInt(100000))

	if err := svc.SettleOrder(order.ID); err != nil {
		t.Fatalf("first settle failed: %v", err)
	}
	if err := svc.SettleOrder(order.ID); err != nil {
		t.Fatalf("second settle failed: %v", err)
	}

	rows := loadOrderCommissions(t, db, order.ID)
	if len(rows) != 1 {
		t.Fatalf("expected 1 commission after repeat settle, got %d", len(rows))
	}
	if !loadUserBalance(t, db, referrer.ID).Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected balance credited once, got %s", loadUserBalance(t, db, referrer.ID))
	}
}

func TestSettleOrderHierarchyDepthCapped(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	for _, role := range []string{constants.UserRoleCTV, constants.UserRoleAgent, constants.UserRoleMasterAgent, constants.UserRoleDistributor} {
		createTestSetting(t, db, role, constants.CommissionTypeRetail, 10)
		createTestSetting(t, db, role, constants.CommissionTypeOverride, 2)
	}

	// 7 层上级链，结算最多吃到 5 层
	var parentID *uint
	chain := make([]*models.User, 0, 7)
	for i := 0; i < 7; i++ {
		user := createCommissionTestUser(t, db, fmt.Sprintf("chain-%d@example.com", i), constants.UserRoleAgent, parentID)
		chain = append(chain, user)
		parentID = &user.ID
	}
	direct := chain[len(chain)-1]
	buyer := createCommissionTestUser(t, db, "buyer-deep@example.com", constants.UserRoleCustomer, &direct.ID)
	order := createConfirmedTestOrder(t, db, buyer.ID, &direct.ID, decimal.NewFromInt(100000))

	if err := svc.SettleOrder(order.ID); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	rows := loadOrderCommissions(t, db, order.ID)
	if len(rows) != 5 {
		t.Fatalf("expected commissions capped at depth 5, got %d", len(rows))
	}
	for i, row := range rows {
		if row.Level != i+1 {
			t.Fatalf("expected level %d at index %d, got %d", i+1, i, row.Level)
		}
	}
}

func TestSettleOrderCycleSafe(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	createTestSetting(t, db, constants.UserRoleAgent, constants.CommissionTypeRetail, 10)
	createTestSetting(t, db, constants.UserRoleAgent, constants.CommissionTypeOverride, 5)

	a := createCommissionTestUser(t, db, "cycle-a@example.com", constants.UserRoleAgent, nil)
	b := createCommissionTestUser(t, db, "cycle-b@example.com", constants.UserRoleAgent, &a.ID)
	// 人为制造 a -> b -> a 的环
	if err := db.Model(&models.User{}).Where("id = ?", a.ID).Update("parent_id", b.ID).Error; err != nil {
		t.Fatalf("build cycle failed: %v", err)
	}

	buyer := createCommissionTestUser(t, db, "cycle-buyer@example.com", constants.UserRoleCustomer, &b.ID)
	order := createConfirmedTestOrder(t, db, buyer.ID, &b.ID, decimal.NewFromInt(100000))

	if err := svc.SettleOrder(order.ID); err != nil {
		t.Fatalf("settle must terminate on cycle: %v", err)
	}

	rows := loadOrderCommissions(t, db, order.ID)
	if len(rows) != 2 {
		t.Fatalf("expected each cycle member settled once, got %d", len(rows))
	}
}

func TestSettleOrderSkipsDisabledBeneficiary(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	createTestSetting(t, db, constants.UserRoleCTV, constants.CommissionTypeRetail, 10)
	createTestSetting(t, db, constants.UserRoleAgent, constants.CommissionTypeOverride, 5)

	agent := createCommissionTestUser(t, db, "agent-dis@example.com", constants.UserRoleAgent, nil)
	disabled := createCommissionTestUser(t, db, "ctv-dis@example.com", constants.UserRoleCTV, &agent.ID)
	if err := db.Model(&models.User{}).Where("id = ?", disabled.ID).Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable user failed: %v", err)
	}
	buyer := createCommissionTestUser(t, db, "buyer-dis@example.com", constants.UserRoleCustomer, &disabled.ID)
	order := createConfirmedTestOrder(t, db, buyer.ID, &disabled.ID, decimal.NewFromInt(100000))

	if err := svc.SettleOrder(order.ID); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	rows := loadOrderCommissions(t, db, order.ID)
	if len(rows) != 1 {
		t.Fatalf("expected 1 commission, got %d", len(rows))
	}
	// 禁用的直接推荐人被跳过且不占用层级，上级按第1级结算
	if rows[0].UserID != agent.ID || rows[0].Level != 1 {
		t.Fatalf("expected agent promoted to level 1, got %+v", rows[0])
	}
	if !loadUserBalance(t, db, disabled.ID).IsZero() {
		t.Fatalf("disabled user must not be credited")
	}
}

func TestSettleOrderRejectsPendingOrder(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	referrer := createCommissionTestUser(t, db, "ctv-pending@example.com", constants.UserRoleCTV, nil)
	buyer := createCommissionTestUser(t, db, "buyer-pending@example.com", constants.UserRoleCustomer, &referrer.ID)
	order := createConfirmedTestOrder(t, db, buyer.ID, &referrer.ID, decimal.NewFromInt(100000))
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", constants.OrderStatusPending).Error; err != nil {
		t.Fatalf("reset order status failed: %v", err)
	}

	if err := svc.SettleOrder(order.ID); err != ErrOrderStatusInvalid {
		t.Fatalf("expected ErrOrderStatusInvalid, got %v", err)
	}
}

func TestSettleOrderUpdatesReferralLinkStats(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	referrer := createCommissionTestUser(t, db, "ctv-stats@example.com", constants.UserRoleCTV, nil)
	link := &models.ReferralLink{
		UserID: referrer.ID,
		Code:   "STATS234",
		Status: constants.ReferralLinkStatusActive,
	}
	if err := db.Create(link).Error; err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	buyer := createCommissionTestUser(t, db, "buyer-stats@example.com", constants.UserRoleCustomer, &referrer.ID)
	order := createConfirmedTestOrder(t, db, buyer.ID, &referrer.ID, decimal.NewFromInt(100000))

	if err := svc.SettleOrder(order.ID); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	var reloaded models.ReferralLink
	if err := db.First(&reloaded, link.ID).Error; err != nil {
		t.Fatalf("reload link failed: %v", err)
	}
	if reloaded.OrderCount != 1 {
		t.Fatalf("expected order_count 1, got %d", reloaded.OrderCount)
	}
	if !reloaded.Revenue.Decimal.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("expected revenue 100000, got %s", reloaded.Revenue.Decimal)
	}
}

func TestMarkCommissionsPaidOnlyTouchesPending(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	referrer := createCommissionTestUser(t, db, "ctv-paid@example.com", constants.UserRoleCTV, nil)
	buyer := createCommissionTestUser(t, db, "buyer-paid@example.com", constants.UserRoleCustomer, &referrer.ID)
	order := createConfirmedTestOrder(t, db, buyer.ID, &referrer.ID, decimal.NewFromInt(100000))
	if err := svc.SettleOrder(order.ID); err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	rows := loadOrderCommissions(t, db, order.ID)
	if len(rows) != 1 {
		t.Fatalf("expected 1 commission, got %d", len(rows))
	}

	updated, err := svc.MarkCommissionsPaid([]uint{rows[0].ID})
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 updated, got %d", updated)
	}

	// 再次标记无待结记录可更新
	updated, err = svc.MarkCommissionsPaid([]uint{rows[0].ID})
	if err != nil {
		t.Fatalf("repeat mark paid failed: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected 0 updated on repeat, got %d", updated)
	}
}

func TestUpsertSettingValidatesPercentRange(t *testing.T) {
	svc, _ := setupCommissionServiceTest(t)

	if _, err := svc.UpsertSetting(constants.UserRoleCTV, constants.CommissionTypeRetail, decimal.NewFromInt(120)); err != ErrCommissionPercentRange {
		t.Fatalf("expected ErrCommissionPercentRange, got %v", err)
	}
	if _, err := svc.UpsertSetting(constants.UserRoleCTV, "bonus", decimal.NewFromInt(10)); err != ErrNotFound {
		t.Fatalf("expected invalid type rejected, got %v", err)
	}

	setting, err := svc.UpsertSetting(constants.UserRoleCTV, constants.CommissionTypeRetail, decimal.NewFromInt(15))
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if setting == nil || !setting.Percent.Decimal.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("unexpected setting: %+v", setting)
	}

	// 同键重复写入更新比例
	setting, err = svc.UpsertSetting(constants.UserRoleCTV, constants.CommissionTypeRetail, decimal.NewFromInt(18))
	if err != nil {
		t.Fatalf("repeat upsert failed: %v", err)
	}
	if !setting.Percent.Decimal.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("expected updated percent 18, got %s", setting.Percent.Decimal)
	}

	all, err := svc.ListSettings()
	if err != nil {
		t.Fatalf("list settings failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected single setting row, got %d", len(all))
	}
}

func TestRecomputeMissingCommissions(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	referrer := createCommissionTestUser(t, db, "ctv-recompute@example.com", constants.UserRoleCTV, nil)
	buyer := createCommissionTestUser(t, db, "buyer-recompute@example.com", constants.UserRoleCustomer, &referrer.ID)
	orderA := createConfirmedTestOrder(t, db, buyer.ID, &referrer.ID, decimal.NewFromInt(10000))
	orderB := createConfirmedTestOrder(t, db, buyer.ID, &referrer.ID, decimal.NewFromInt(20000))
	// 已结算订单不应重复计入
	if err := svc.SettleOrder(orderA.ID); err != nil {
		t.Fatalf("settle orderA failed: %v", err)
	}

	settled, err := svc.RecomputeMissingCommissions(100)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if settled != 1 {
		t.Fatalf("expected 1 order recomputed, got %d", settled)
	}
	if rows := loadOrderCommissions(t, db, orderB.ID); len(rows) != 1 {
		t.Fatalf("expected orderB settled, got %d rows", len(rows))
	}
}
