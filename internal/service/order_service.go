package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/botmall-next/internal/constants"
	"github.com/botmall-next/internal/logger"
	"github.com/botmall-next/internal/models"
	"github.com/botmall-next/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionSettleEnqueuer 佣金结算异步投递接口
type CommissionSettleEnqueuer interface {
	EnqueueCommissionSettle(orderID uint) error
}

// OrderService 订单业务服务
type OrderService struct {
	repo              repository.OrderRepository
	userRepo          repository.UserRepository
	referralService   *ReferralService
	commissionService *CommissionService
	enqueuer          CommissionSettleEnqueuer
}

// NewOrderService 创建订单服务。enqueuer 为空时佣金结算同步执行。
func NewOrderService(
	repo repository.OrderRepository,
	userRepo repository.UserRepository,
	referralService *ReferralService,
	commissionService *CommissionService,
	enqueuer CommissionSettleEnqueuer,
) *OrderService {
	return &OrderService{
		repo:              repo,
		userRepo:          userRepo,
		referralService:   referralService,
		commissionService: commissionService,
		enqueuer:          enqueuer,
	}
}

// OrderCreateInput 下单输入
type OrderCreateInput struct {
	TotalPrice   decimal.Decimal
	ReferralCode string
}

// Create 创建订单。推荐码在此刻解析并固化为 referrer_id，
// 归因失败（无效码、自我推荐）不阻断下单。
func (s *OrderService) Create(userID uint, input OrderCreateInput) (*models.Order, error) {
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
	total := input.TotalPrice.Round(2)
	if total.Sign() <= 0 {
		return nil, ErrOrderStatusInvalid
	}

	referrerID := s.referralService.ResolveReferrerID(input.ReferralCode, userID)

	order := &models.Order{
		OrderNo:    generateOrderNo(),
		UserID:     userID,
		ReferrerID: referrerID,
		Status:     constants.OrderStatusPending,
		TotalPrice: models.NewMoneyFromDecimal(total),
	}
	if err := s.repo.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

// Confirm 确认订单（支付回调或管理端操作）。
// pending -> confirmed，重复确认幂等返回成功；
// 确认落库后才触发佣金结算，结算失败不回滚订单确认。
func (s *OrderService) Confirm(orderID uint, source string) (*models.Order, error) {
	if orderID == 0 {
		return nil, ErrNotFound
	}

	alreadyConfirmed := false
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		order, err := repoTx.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrNotFound
		}
		switch order.Status {
		case constants.OrderStatusConfirmed, constants.OrderStatusCompleted:
			alreadyConfirmed = true
			return nil
		case constants.OrderStatusPending:
		default:
			return ErrOrderStatusInvalid
		}

		now := time.Now()
		return repoTx.UpdateStatus(orderID, constants.OrderStatusConfirmed, map[string]interface{}{
			"confirmed_at": now,
		})
	})
	if err != nil {
		return nil, err
	}

	if !alreadyConfirmed {
		logger.Infow("order_confirmed", "order_id", orderID, "source", source)
		s.triggerSettle(orderID)
	}
	return s.repo.GetByID(orderID)
}

// ConfirmByOrderNo 按订单编号确认订单（支付网关回调入口）
func (s *OrderService) ConfirmByOrderNo(orderNo, source string) (*models.Order, error) {
	order, err := s.repo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return s.Confirm(order.ID, source)
}

// triggerSettle 订单确认后触发佣金结算。
// 优先异步投递，队列不可用时降级为同步结算；
// 两者都失败时仅告警，留待补偿任务重算。
func (s *OrderService) triggerSettle(orderID uint) {
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueCommissionSettle(orderID); err == nil {
			return
		} else {
			logger.Warnw("commission_settle_enqueue_failed", "order_id", orderID, "error", err)
		}
	}
	if s.commissionService == nil {
		return
	}
	if err := s.commissionService.SettleOrder(orderID); err != nil {
		logger.Errorw("commission_settle_failed", "order_id", orderID, "error", err)
	}
}

// Cancel 取消订单，仅允许 pending 状态。
func (s *OrderService) Cancel(orderID uint) (*models.Order, error) {
	if orderID == 0 {
		return nil, ErrNotFound
	}
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		order, err := repoTx.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrNotFound
		}
		if order.Status != constants.OrderStatusPending {
			return ErrOrderStatusInvalid
		}
		return repoTx.UpdateStatus(orderID, constants.OrderStatusCanceled, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(orderID)
}

// GetUserOrder 用户查询自己的订单
func (s *OrderService) GetUserOrder(userID, orderID uint) (*models.Order, error) {
	order, err := s.repo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return order, nil
}

// ListUserOrders 用户订单列表
func (s *OrderService) ListUserOrders(userID uint, filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if userID == 0 {
		return nil, 0, ErrNotFound
	}
	filter.UserID = userID
	return s.repo.ListByUser(filter)
}

// ListAdmin 管理端订单列表
func (s *OrderService) ListAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.repo.ListAdmin(filter)
}

func generateOrderNo() string {
	const digits = "0123456789"
	var builder strings.Builder
	builder.WriteString("BM")
	builder.WriteString(time.Now().Format("20060102150405"))
	max := big.NewInt(int64(len(digits)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			builder.WriteByte('0')
			continue
		}
		builder.WriteByte(digits[n.Int64()])
	}
	return builder.String()
}
