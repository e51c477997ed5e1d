package service

import (
	"strings"
	"time"

	"github.com/botmall-next/internal/config"
	"github.com/botmall-next/internal/constants"
	"github.com/botmall-next/internal/logger"
	"github.com/botmall-next/internal/models"
	"github.com/botmall-next/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionService 佣金结算业务服务
type CommissionService struct {
	repo         repository.CommissionRepository
	settingRepo  repository.CommissionSettingRepository
	userRepo     repository.UserRepository
	orderRepo    repository.OrderRepository
	referralRepo repository.ReferralRepository
	cfg          *config.Config
}

// NewCommissionService 创建佣金服务
func NewCommissionService(
	repo repository.CommissionRepository,
	settingRepo repository.CommissionSettingRepository,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	referralRepo repository.ReferralRepository,
	cfg *config.Config,
) *CommissionService {
	return &CommissionService{
		repo:         repo,
		settingRepo:  settingRepo,
		userRepo:     userRepo,
		orderRepo:    orderRepo,
		referralRepo: referralRepo,
		cfg:          cfg,
	}
}

// commissionBeneficiary 结算受益人（含层级）
type commissionBeneficiary struct {
	user  models.User
	level int
}

// CommissionSummary 用户佣金汇总
type CommissionSummary struct {
	PendingTotal models.Money `json:"pending_total"`
	PaidTotal    models.Money `json:"paid_total"`
}

// CommissionRankingEntry 佣金排行条目
type CommissionRankingEntry struct {
	UserID      uint         `json:"user_id"`
	Email       string       `json:"email"`
	DisplayName string       `json:"display_name"`
	Role        string       `json:"role"`
	TotalAmount models.Money `json:"total_amount"`
	OrderCount  int64        `json:"order_count"`
}

// SettleOrder 为已确认订单结算多级佣金。
// 同一订单重复调用幂等：已有佣金记录时直接跳过，
// (order_id, user_id) 唯一索引兜底并发重复结算。
// 佣金入账与余额增加在同一事务内完成。
func (s *CommissionService) SettleOrder(orderID uint) error {
	if orderID == 0 {
		return ErrNotFound
	}

	err := s.repo.Transaction(func(tx *gorm.DB) error {
		orderTx := s.orderRepo.WithTx(tx)
		order, err := orderTx.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrNotFound
		}
		if order.ReferrerID == nil || *order.ReferrerID == 0 {
			// 无推荐人的订单不产生佣金
			return nil
		}
		if order.Status != constants.OrderStatusConfirmed && order.Status != constants.OrderStatusCompleted {
			return ErrOrderStatusInvalid
		}
		total := order.TotalPrice.Decimal.Round(2)
		if total.Sign() <= 0 {
			return nil
		}

		commTx := s.repo.WithTx(tx)
		exists, err := commTx.ExistsByOrder(orderID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		userTx := s.userRepo.WithTx(tx)
		beneficiaries, err := s.resolveBeneficiaries(userTx, *order.ReferrerID, order.UserID)
		if err != nil {
			return err
		}

		settingTx := s.settingRepo.WithTx(tx)
		now := time.Now()
		settled := 0
		for _, b := range beneficiaries {
			percent, ok, err := s.resolvePercent(settingTx, b.user.Role, b.level)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			amount := total.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
			if amount.Sign() <= 0 {
				continue
			}

			commission := &models.Commission{
				OrderID:   orderID,
				UserID:    b.user.ID,
				Amount:    models.NewMoneyFromDecimal(amount),
				Percent:   models.NewMoneyFromDecimal(percent),
				Level:     b.level,
				Status:    constants.CommissionStatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := commTx.Create(commission); err != nil {
				return err
			}
			if err := userTx.AddBalance(b.user.ID, amount); err != nil {
				return err
			}
			settled++
		}

		// 直接推荐人的链接累计成交统计
		referralTx := s.referralRepo.WithTx(tx)
		link, err := referralTx.GetLinkByUserID(*order.ReferrerID)
		if err != nil {
			return err
		}
		if link != nil {
			if err := referralTx.IncrementOrderStats(link.ID, total); err != nil {
				return err
			}
		}

		logger.Infow("commission_settled",
			"order_id", orderID,
			"order_no", order.OrderNo,
			"beneficiaries", settled,
		)
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			logger.Infow("commission_settle_duplicate_skipped", "order_id", orderID)
			return nil
		}
		return err
	}
	return nil
}

// resolveBeneficiaries 沿上级链解析结算受益人。
// 第1级为直接推荐人，向上至多遍历配置的深度上限，
// 访问过的节点不再重复进入，上级链成环时截断并告警。
func (s *CommissionService) resolveBeneficiaries(userRepo repository.UserRepository, referrerID, buyerID uint) ([]commissionBeneficiary, error) {
	maxDepth := s.cfg.Referral.MaxHierarchyDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	beneficiaries := make([]commissionBeneficiary, 0, maxDepth)
	visited := map[uint]struct{}{}
	currentID := referrerID
	for level := 1; level <= maxDepth && currentID != 0; level++ {
		if _, seen := visited[currentID]; seen {
			logger.Warnw("referral_hierarchy_cycle_detected",
				"referrer_id", referrerID,
				"cycle_user_id", currentID,
				"level", level,
			)
			break
		}
		visited[currentID] = struct{}{}

		user, err := userRepo.GetByID(currentID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			break
		}

		nextID := uint(0)
		if user.ParentID != nil {
			nextID = *user.ParentID
		}

		if strings.TrimSpace(user.Status) == constants.UserStatusDisabled || user.ID == buyerID {
			currentID = nextID
			level--
			continue
		}

		beneficiaries = append(beneficiaries, commissionBeneficiary{user: *user, level: level})
		currentID = nextID
	}
	return beneficiaries, nil
}

// resolvePercent 按受益人角色与层级解析佣金比例。
// 第1级取 retail 配置，缺失时回退到全局兜底比例；
// 第2级及以上取 override 配置，未配置则不产生佣金。
func (s *CommissionService) resolvePercent(settingRepo repository.CommissionSettingRepository, role string, level int) (decimal.Decimal, bool, error) {
	commissionType := constants.CommissionTypeRetail
	if level > 1 {
		commissionType = constants.CommissionTypeOverride
	}
	setting, err := settingRepo.Get(strings.ToLower(strings.TrimSpace(role)), commissionType)
	if err != nil {
		return decimal.Zero, false, err
	}
	if setting != nil {
		percent := setting.Percent.Decimal.Round(2)
		if percent.Sign() <= 0 {
			return decimal.Zero, false, nil
		}
		return percent, true, nil
	}
	if level == 1 {
		fallback := decimal.NewFromFloat(s.cfg.Referral.FallbackRetailPercent).Round(2)
		if fallback.Sign() <= 0 {
			return decimal.Zero, false, nil
		}
		logger.Warnw("commission_retail_setting_missing_fallback_used", "role", role, "percent", fallback)
		return fallback, true, nil
	}
	return decimal.Zero, false, nil
}

// RecomputeMissingCommissions 补偿结算：扫描已确认但尚无佣金记录的订单
// 并逐一结算，返回成功结算的订单数。
func (s *CommissionService) RecomputeMissingCommissions(limit int) (int, error) {
	orders, err := s.orderRepo.ListConfirmedWithoutCommission(limit)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, order := range orders {
		if err := s.SettleOrder(order.ID); err != nil {
			logger.Warnw("commission_recompute_failed", "order_id", order.ID, "error", err)
			continue
		}
		settled++
	}
	return settled, nil
}

// MarkCommissionsPaid 管理端批量将待结佣金标记为已发放。
// 仅迁移 pending 状态的记录，返回实际更新条数。
func (s *CommissionService) MarkCommissionsPaid(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	updated, err := s.repo.BatchUpdateStatus(ids, constants.CommissionStatusPending, constants.CommissionStatusPaid)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		logger.Infow("commissions_marked_paid", "requested", len(ids), "updated", updated)
	}
	return updated, nil
}

// ListUserCommissions 用户查询自己的佣金记录
func (s *CommissionService) ListUserCommissions(userID uint, filter repository.CommissionListFilter) ([]models.Commission, int64, error) {
	if userID == 0 {
		return nil, 0, ErrNotFound
	}
	filter.UserID = userID
	return s.repo.List(filter)
}

// GetUserSummary 用户佣金汇总（待结与已发放总额）
func (s *CommissionService) GetUserSummary(userID uint) (*CommissionSummary, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	pending, err := s.repo.SumByUser(userID, []string{constants.CommissionStatusPending})
	if err != nil {
		return nil, err
	}
	paid, err := s.repo.SumByUser(userID, []string{constants.CommissionStatusPaid})
	if err != nil {
		return nil, err
	}
	return &CommissionSummary{
		PendingTotal: models.NewMoneyFromDecimal(pending),
		PaidTotal:    models.NewMoneyFromDecimal(paid),
	}, nil
}

// List 管理端佣金记录列表
func (s *CommissionService) List(filter repository.CommissionListFilter) ([]models.Commission, int64, error) {
	return s.repo.List(filter)
}

// Ranking 管理端佣金排行榜
func (s *CommissionService) Ranking(from, to *time.Time, limit int) ([]CommissionRankingEntry, error) {
	rows, err := s.repo.Ranking(from, to, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	users, err := s.userRepo.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	userByID := make(map[uint]models.User, len(users))
	for _, user := range users {
		userByID[user.ID] = user
	}

	entries := make([]CommissionRankingEntry, 0, len(rows))
	for _, row := range rows {
		entry := CommissionRankingEntry{
			UserID:      row.UserID,
			TotalAmount: models.NewMoneyFromDecimal(row.TotalAmount),
			OrderCount:  row.OrderCount,
		}
		if user, ok := userByID[row.UserID]; ok {
			entry.Email = user.Email
			entry.DisplayName = user.DisplayName
			entry.Role = user.Role
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ListSettings 获取全部佣金比例配置
func (s *CommissionService) ListSettings() ([]models.CommissionSetting, error) {
	return s.settingRepo.ListAll()
}

// UpsertSetting 写入佣金比例配置，比例限定 0~100。
func (s *CommissionService) UpsertSetting(role, commissionType string, percent decimal.Decimal) (*models.CommissionSetting, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	commissionType = strings.ToLower(strings.TrimSpace(commissionType))
	if role == "" {
		return nil, ErrNotFound
	}
	if commissionType != constants.CommissionTypeRetail && commissionType != constants.CommissionTypeOverride {
		return nil, ErrNotFound
	}
	percent = percent.Round(2)
	if percent.Sign() < 0 || percent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ErrCommissionPercentRange
	}
	setting := &models.CommissionSetting{
		Role:           role,
		CommissionType: commissionType,
		Percent:        models.NewMoneyFromDecimal(percent),
	}
	if err := s.settingRepo.Upsert(setting); err != nil {
		return nil, err
	}
	return s.settingRepo.Get(role, commissionType)
}

// DeleteSetting 删除佣金比例配置
func (s *CommissionService) DeleteSetting(role, commissionType string) error {
	return s.settingRepo.Delete(strings.ToLower(strings.TrimSpace(role)), strings.ToLower(strings.TrimSpace(commissionType)))
}
