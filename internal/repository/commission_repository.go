package repository

import (
	"errors"
	"time"

	"github.com/botmall-next/internal/models"
	"github.com/shopspring/decimal"

	"gorm.io/gorm"
)

// CommissionRankingRow 佣金排行聚合结果
type CommissionRankingRow struct {
	UserID      uint            `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OrderCount  int64           `json:"order_count"`
}

// CommissionRepository 佣金数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	Create(commission *models.Commission) error
	GetByID(id uint) (*models.Commission, error)
	GetByOrderAndUser(orderID, userID uint) (*models.Commission, error)
	ExistsByOrder(orderID uint) (bool, error)
	ListByOrder(orderID uint) ([]models.Commission, error)
	List(filter CommissionListFilter) ([]models.Commission, int64, error)
	SumByUser(userID uint, statuses []string) (decimal.Decimal, error)
	BatchUpdateStatus(ids []uint, fromStatus, toStatus string) (int64, error)
	Ranking(from, to *time.Time, limit int) ([]CommissionRankingRow, error)
}

// GormCommissionRepository GORM 实现
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓库
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建佣金记录
func (r *GormCommissionRepository) Create(commission *models.Commission) error {
	return r.db.Create(commission).Error
}

// GetByID 按ID获取佣金记录
func (r *GormCommissionRepository) GetByID(id uint) (*models.Commission, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.Commission
	if err := r.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByOrderAndUser 按订单与受益人获取佣金记录
func (r *GormCommissionRepository) GetByOrderAndUser(orderID, userID uint) (*models.Commission, error) {
	if orderID == 0 || userID == 0 {
		return nil, nil
	}
	var row models.Commission
	if err := r.db.Where("order_id = ? AND user_id = ?", orderID, userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ExistsByOrder 判断订单是否已产生佣金
func (r *GormCommissionRepository) ExistsByOrder(orderID uint) (bool, error) {
	if orderID == 0 {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.Commission{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByOrder 查询订单的全部佣金记录
func (r *GormCommissionRepository) ListByOrder(orderID uint) ([]models.Commission, error) {
	if orderID == 0 {
		return []models.Commission{}, nil
	}
	var rows []models.Commission
	if err := r.db.Where("order_id = ?", orderID).Order("level ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List 查询佣金记录列表
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.Commission, int64, error) {
	query := r.db.Model(&models.Commission{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Level != 0 {
		query = query.Where("level = ?", filter.Level)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Commission
	if err := query.Preload("Order").Preload("User").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SumByUser 统计用户指定状态的佣金总额
func (r *GormCommissionRepository) SumByUser(userID uint, statuses []string) (decimal.Decimal, error) {
	if userID == 0 {
		return decimal.Zero, nil
	}
	query := r.db.Model(&models.Commission{}).Where("user_id = ?", userID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var sum decimal.NullDecimal
	if err := query.Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// BatchUpdateStatus 批量迁移佣金状态，仅更新处于 fromStatus 的记录。
func (r *GormCommissionRepository) BatchUpdateStatus(ids []uint, fromStatus, toStatus string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Commission{}).
		Where("id IN ? AND status = ?", ids, fromStatus).
		Updates(map[string]interface{}{
			"status":     toStatus,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Ranking 按受益人聚合佣金总额，倒序返回前 N 名。
func (r *GormCommissionRepository) Ranking(from, to *time.Time, limit int) ([]CommissionRankingRow, error) {
	if limit <= 0 {
		limit = 10
	}
	query := r.db.Model(&models.Commission{}).
		Select("user_id, COALESCE(SUM(amount), 0) AS total_amount, COUNT(DISTINCT order_id) AS order_count")
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var rows []CommissionRankingRow
	err := query.Group("user_id").
		Order("total_amount DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
