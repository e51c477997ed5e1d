package service

import (
	"strings"
	"time"

	"github.com/botmall-next/internal/constants"
	"github.com/botmall-next/internal/logger"
	"github.com/botmall-next/internal/models"
	"github.com/botmall-next/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawalService 提现业务服务
type WithdrawalService struct {
	repo     repository.WithdrawalRepository
	userRepo repository.UserRepository
}

// NewWithdrawalService 创建提现服务
func NewWithdrawalService(repo repository.WithdrawalRepository, userRepo repository.UserRepository) *WithdrawalService {
	return &WithdrawalService{repo: repo, userRepo: userRepo}
}

// WithdrawalApplyInput 提现申请输入
type WithdrawalApplyInput struct {
	Amount        decimal.Decimal
	BankName      string
	BankAccount   string
	AccountHolder string
}

// Apply 用户提交提现申请。申请成功即冻结余额：
// 余额扣减与申请单创建在同一事务内完成，余额不足时整体回滚。
// 每个用户同时只允许一笔待审核申请。
func (s *WithdrawalService) Apply(userID uint, input WithdrawalApplyInput) (*models.Withdrawal, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	amount := input.Amount.Round(2)
	if amount.Sign() <= 0 {
		return nil, ErrWithdrawAmountInvalid
	}
	bankName := strings.TrimSpace(input.BankName)
	bankAccount := strings.TrimSpace(input.BankAccount)
	accountHolder := strings.TrimSpace(input.AccountHolder)
	if bankName == "" || bankAccount == "" || accountHolder == "" {
		return nil, ErrWithdrawAmountInvalid
	}

	var createdID uint
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		userTx := s.userRepo.WithTx(tx)

		user, err := userTx.GetByIDForUpdate(userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrNotFound
		}
		if strings.TrimSpace(user.Status) == constants.UserStatusDisabled {
			return ErrUserDisabled
		}

		pending, err := repoTx.HasPendingByUser(userID)
		if err != nil {
			return err
		}
		if pending {
			return ErrWithdrawAlreadyPending
		}

		ok, err := userTx.DeductBalance(userID, amount)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWithdrawInsufficient
		}

		withdrawal := &models.Withdrawal{
			UserID:        userID,
			Amount:        models.NewMoneyFromDecimal(amount),
			BankName:      bankName,
			BankAccount:   bankAccount,
			AccountHolder: accountHolder,
			Status:        constants.WithdrawalStatusPending,
		}
		if err := repoTx.Create(withdrawal); err != nil {
			return err
		}
		createdID = withdrawal.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("withdrawal_applied", "withdrawal_id", createdID, "user_id", userID, "amount", amount)
	return s.repo.GetByID(createdID)
}

// Process 管理端处理提现申请。
// approve: pending -> approved；mark_paid: approved -> paid；
// reject: pending/approved -> rejected，并在同一事务内退还冻结余额。
func (s *WithdrawalService) Process(adminID, withdrawalID uint, action, rejectReason string) (*models.Withdrawal, error) {
	if withdrawalID == 0 {
		return nil, ErrNotFound
	}
	act := strings.ToLower(strings.TrimSpace(action))
	if act != constants.WithdrawalActionApprove &&
		act != constants.WithdrawalActionMarkPaid &&
		act != constants.WithdrawalActionReject {
		return nil, ErrWithdrawStatusInvalid
	}
	rejectReason = strings.TrimSpace(rejectReason)

	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		withdrawal, err := repoTx.GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if withdrawal == nil {
			return ErrNotFound
		}

		now := time.Now()
		switch act {
		case constants.WithdrawalActionApprove:
			if withdrawal.Status != constants.WithdrawalStatusPending {
				return ErrWithdrawStatusInvalid
			}
			withdrawal.Status = constants.WithdrawalStatusApproved

		case constants.WithdrawalActionMarkPaid:
			if withdrawal.Status != constants.WithdrawalStatusApproved {
				return ErrWithdrawStatusInvalid
			}
			withdrawal.Status = constants.WithdrawalStatusPaid

		case constants.WithdrawalActionReject:
			if withdrawal.Status != constants.WithdrawalStatusPending &&
				withdrawal.Status != constants.WithdrawalStatusApproved {
				return ErrWithdrawStatusInvalid
			}
			withdrawal.Status = constants.WithdrawalStatusRejected
			withdrawal.RejectReason = rejectReason

			userTx := s.userRepo.WithTx(tx)
			if err := userTx.AddBalance(withdrawal.UserID, withdrawal.Amount.Decimal); err != nil {
				return err
			}
		}

		withdrawal.ProcessedBy = &adminID
		withdrawal.ProcessedAt = &now
		withdrawal.UpdatedAt = now
		return repoTx.Update(withdrawal)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("withdrawal_processed", "withdrawal_id", withdrawalID, "action", act, "admin_id", adminID)
	return s.repo.GetByID(withdrawalID)
}

// ListUserWithdrawals 用户查询自己的提现记录
func (s *WithdrawalService) ListUserWithdrawals(userID uint, filter repository.WithdrawalListFilter) ([]models.Withdrawal, int64, error) {
	if userID == 0 {
		return nil, 0, ErrNotFound
	}
	filter.UserID = userID
	return s.repo.List(filter)
}

// GetUserWithdrawal 用户查询单笔提现记录
func (s *WithdrawalService) GetUserWithdrawal(userID, withdrawalID uint) (*models.Withdrawal, error) {
	withdrawal, err := s.repo.GetByID(withdrawalID)
	if err != nil {
		return nil, err
	}
	if withdrawal == nil || withdrawal.UserID != userID {
		return nil, ErrNotFound
	}
	return withdrawal, nil
}

// List 管理端提现申请列表
func (s *WithdrawalService) List(filter repository.WithdrawalListFilter) ([]models.Withdrawal, int64, error) {
	return s.repo.List(filter)
}
