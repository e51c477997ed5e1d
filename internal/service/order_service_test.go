package service

import (
	"errors"
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

type recordingEnqueuer struct {
	orderIDs []uint
	fail     error
}

func (e *recordingEnqueuer) EnqueueCommissionSettle(orderID uint) error {
	if e.fail != nil {
		return e.fail
	}
	e.orderIDs = append(e.orderIDs, orderID)
	return nil
}

func setupOrderServiceTest(t *testing.T, enqueuer CommissionSettleEnqueuer) (*OrderService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	referralService := NewReferralService(referralRepo, userRepo)
	commissionService := NewCommissionService(
		repository.NewCommissionRepository(db),
		repository.NewCommissionSettingRepository(db),
		userRepo,
		orderRepo,
		referralRepo,
		cfg,
	)
	return NewOrderService(orderRepo, userRepo, referralService, commissionService, enqueuer), db
}

func TestOrderCreateAttributesReferrerAtCheckout(t *testing.T) {
	svc, db := setupOrderServiceTest(t, nil)

	referrer := createCommissionTestUser(t, db, "order-ref@example.com", constants.UserRoleCTV, nil)
	link := &models.ReferralLink{UserID: referrer.ID, Code: "ORDCODE1", Status: constants.ReferralLinkStatusActive}
	if err := db.Create(link).Error; err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	buyer := createCommissionTestUser(t, db, "order-buyer@example.com", constants.UserRoleCustomer, nil)

	order, err := svc.Create(buyer.ID, OrderCreateInput{TotalPrice: decimal.NewFromInt(50000), ReferralCode: link.Code})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.ReferrerID == nil || *order.ReferrerID != referrer.ID {
		t.Fatalf("expected referrer %d frozen on order, got %v", referrer.ID, order.ReferrerID)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", order.Status)
	}

	// 无效推荐码不阻断下单
	order2, err := svc.Create(buyer.ID, OrderCreateInput{TotalPrice: decimal.NewFromInt(10000), ReferralCode: "NOSUCH99"})
	if err != nil {
		t.Fatalf("create order with bad code failed: %v", err)
	}
	if order2.ReferrerID != nil {
		t.Fatalf("expected nil referrer for bad code, got %v", order2.ReferrerID)
	}
}

func TestOrderCreateRejectsNonPositiveTotal(t *testing.T) {
	svc, db := setupOrderServiceTest(t, nil)

	buyer := createCommissionTestUser(t, db, "order-zero@example.com", constants.UserRoleCustomer, nil)
	if _, err := svc.Create(buyer.ID, OrderCreateInput{TotalPrice: decimal.Zero}); err != ErrOrderStatusInvalid {
		t.Fatalf("expected ErrOrderStatusInvalid, got %v", err)
	}
}

func TestOrderConfirmIdempotentAndSettlesSynchronously(t *testing.T) {
	svc, db := setupOrderServiceTest(t, nil)

	referrer := createCommissionTestUser(t, db, "confirm-ref@example.com", constants.UserRoleCTV, nil)
	buyer := createCommissionTestUser(t, db, "confirm-buyer@example.com", constants.UserRoleCustomer, nil)
	order := &models.Order{
		OrderNo:    "BM-CONFIRM-1",
		UserID:     buyer.ID,
		ReferrerID: &referrer.ID,
		Status:     constants.OrderStatusPending,
		TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(100000)),
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	confirmed, err := svc.Confirm(order.ID, constants.OrderConfirmSourceWebhook)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != constants.OrderStatusConfirmed || confirmed.ConfirmedAt == nil {
		t.Fatalf("expected confirmed order with timestamp, got %+v", confirmed)
	}
	// 队列未配置时同步结算
	if rows := loadOrderCommissions(t, db, order.ID); len(rows) != 1 {
		t.Fatalf("expected 1 commission after confirm, got %d", len(rows))
	}

	// 重复确认幂等，不产生新佣金
	if _, err := svc.Confirm(order.ID, constants.OrderConfirmSourceAdmin); err != nil {
		t.Fatalf("repeat confirm failed: %v", err)
	}
	if rows := loadOrderCommissions(t, db, order.ID); len(rows) != 1 {
		t.Fatalf("expected commissions unchanged after repeat confirm, got %d", len(rows))
	}
	if !loadUserBalance(t, db, referrer.ID).Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected balance credited once, got %s", loadUserBalance(t, db, referrer.ID))
	}
}

func TestOrderConfirmPrefersQueueWhenAvailable(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	svc, db := setupOrderServiceTest(t, enqueuer)

	referrer := createCommissionTestUser(t, db, "queue-ref@example.com", constants.UserRoleCTV, nil)
	buyer := createCommissionTestUser(t, db, "queue-buyer@example.com", constants.UserRoleCustomer, nil)
	order := &models.Order{
		OrderNo:    "BM-QUEUE-1",
		UserID:     buyer.ID,
		ReferrerID: &referrer.ID,
		Status:     constants.OrderStatusPending,
		TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(100000)),
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := svc.Confirm(order.ID, constants.OrderConfirmSourceWebhook); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if len(enqueuer.orderIDs) != 1 || enqueuer.orderIDs[0] != order.ID {
		t.Fatalf("expected settle enqueued for order %d, got %v", order.ID, enqueuer.orderIDs)
	}
	// 异步路径下确认时不落佣金
	if rows := loadOrderCommissions(t, db, order.ID); len(rows) != 0 {
		t.Fatalf("expected no synchronous commissions, got %d", len(rows))
	}
}

func TestOrderConfirmFallsBackWhenEnqueueFails(t *testing.T) {
	enqueuer := &recordingEnqueuer{fail: errors.New("queue down")}
	svc, db := setupOrderServiceTest(t, enqueuer)

	referrer := createCommissionTestUser(t, db, "fallback-ref@example.com", constants.UserRoleCTV, nil)
	buyer := createCommissionTestUser(t, db, "fallback-buyer@example.com", constants.UserRoleCustomer, nil)
	order := &models.Order{
		OrderNo:    "BM-FALLBACK-1",
		UserID:     buyer.ID,
		ReferrerID: &referrer.ID,
		Status:     constants.OrderStatusPending,
		TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(100000)),
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	confirmed, err := svc.Confirm(order.ID, constants.OrderConfirmSourceWebhook)
	if err != nil {
		t.Fatalf("confirm must not fail on queue error: %v", err)
	}
	if confirmed.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}
	if rows := loadOrderCommissions(t, db, order.ID); len(rows) != 1 {
		t.Fatalf("expected synchronous fallback settle, got %d rows", len(rows))
	}
}

func TestOrderConfirmByOrderNo(t *testing.T) {
	svc, db := setupOrderServiceTest(t, nil)

	buyer := createCommissionTestUser(t, db, "byno-buyer@example.com", constants.UserRoleCustomer, nil)
	order := &models.Order{
		OrderNo:    "BM-BYNO-1",
		UserID:     buyer.ID,
		Status:     constants.OrderStatusPending,
		TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(10000)),
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	confirmed, err := svc.ConfirmByOrderNo("BM-BYNO-1", constants.OrderConfirmSourceWebhook)
	if err != nil {
		t.Fatalf("confirm by order_no failed: %v", err)
	}
	if confirmed.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}

	if _, err := svc.ConfirmByOrderNo("BM-MISSING", constants.OrderConfirmSourceWebhook); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderCancelOnlyPending(t *testing.T) {
	svc, db := setupOrderServiceTest(t, nil)

	buyer := createCommissionTestUser(t, db, "cancel-buyer@example.com", constants.UserRoleCustomer, nil)
	order := &models.Order{
		OrderNo:    "BM-CANCEL-1",
		UserID:     buyer.ID,
		Status:     constants.OrderStatusPending,
		TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(10000)),
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	canceled, err := svc.Cancel(order.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if canceled.Status != constants.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", canceled.Status)
	}
	if _, err := svc.Cancel(order.ID); err != ErrOrderStatusInvalid {
		t.Fatalf("expected ErrOrderStatusInvalid on repeat cancel, got %v", err)
	}
	if _, err := svc.Confirm(order.ID, constants.OrderConfirmSourceAdmin); err != ErrOrderStatusInvalid {
		t.Fatalf("expected canceled order not confirmable, got %v", err)
	}
}

func TestOrderGetUserOrderOwnership(t *testing.T) {
	svc, db := setupOrderServiceTest(t, nil)

	owner := createCommissionTestUser(t, db, "own-buyer@example.com", constants.UserRoleCustomer, nil)
	other := createCommissionTestUser(t, db, "own-other@example.com", constants.UserRoleCustomer, nil)
	order, err := svc.Create(owner.ID, OrderCreateInput{TotalPrice: decimal.NewFromInt(10000)})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := svc.GetUserOrder(other.ID, order.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for foreign order, got %v", err)
	}
	got, err := svc.GetUserOrder(owner.ID, order.ID)
	if err != nil || got == nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
}
