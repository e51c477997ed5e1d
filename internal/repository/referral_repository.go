package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/botmall-next/internal/models"
	"github.com/shopspring/decimal"

	"gorm.io/gorm"
)

// ReferralRepository 推荐链接与点击数据访问接口
type ReferralRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ReferralRepository

	GetLinkByUserID(userID uint) (*models.ReferralLink, error)
	GetLinkByCode(code string) (*models.ReferralLink, error)
	GetLinkByID(id uint) (*models.ReferralLink, error)
	CreateLink(link *models.ReferralLink) error
	UpdateLinkStatus(id uint, status string) error
	ListLinks(filter ReferralLinkListFilter) ([]models.ReferralLink, int64, error)
	ListUserIDsWithLink() ([]uint, error)

	CreateClick(click *models.ReferralClick) error
	IncrementClickCount(linkID uint) error
	IncrementOrderStats(linkID uint, amount decimal.Decimal) error
	ListClicks(filter ReferralClickListFilter) ([]models.ReferralClick, int64, error)
}

// GormReferralRepository GORM 实现
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建推荐仓库
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) ReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// Transaction 执行事务
func (r *GormReferralRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetLinkByUserID 按用户ID获取推荐链接
func (r *GormReferralRepository) GetLinkByUserID(userID uint) (*models.ReferralLink, error) {
	if userID == 0 {
		return nil, nil
	}
	var link models.ReferralLink
	if err := r.db.Where("user_id = ?", userID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetLinkByCode 按短码获取推荐链接
func (r *GormReferralRepository) GetLinkByCode(code string) (*models.ReferralLink, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var link models.ReferralLink
	if err := r.db.Preload("User").Where("code = ?", normalized).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetLinkByID 按ID获取推荐链接
func (r *GormReferralRepository) GetLinkByID(id uint) (*models.ReferralLink, error) {
	if id == 0 {
		return nil, nil
	}
	var link models.ReferralLink
	if err := r.db.First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// CreateLink 创建推荐链接
func (r *GormReferralRepository) CreateLink(link *models.ReferralLink) error {
	return r.db.Create(link).Error
}

// UpdateLinkStatus 更新推荐链接状态
func (r *GormReferralRepository) UpdateLinkStatus(id uint, status string) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.ReferralLink{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     strings.TrimSpace(status),
			"updated_at": time.Now(),
		}).Error
}

// ListLinks 查询推荐链接列表
func (r *GormReferralRepository) ListLinks(filter ReferralLinkListFilter) ([]models.ReferralLink, int64, error) {
	query := r.db.Model(&models.ReferralLink{}).Preload("User")
	if filter.UserID != 0 {
		query = query.Where("referral_links.user_id = ?", filter.UserID)
	}
	if code := strings.TrimSpace(filter.Code); code != "" {
		query = query.Where("referral_links.code = ?", strings.ToUpper(code))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("referral_links.status = ?", status)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.
			Joins("LEFT JOIN users ON users.id = referral_links.user_id").
			Where("(users.email LIKE ? OR users.display_name LIKE ? OR referral_links.code LIKE ?)", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.ReferralLink
	if err := query.Order("referral_links.id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListUserIDsWithLink 查询已持有推荐链接的用户ID集合
func (r *GormReferralRepository) ListUserIDsWithLink() ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.ReferralLink{}).Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateClick 创建推荐点击记录
func (r *GormReferralRepository) CreateClick(click *models.ReferralClick) error {
	return r.db.Create(click).Error
}

// IncrementClickCount 累加点击计数
func (r *GormReferralRepository) IncrementClickCount(linkID uint) error {
	if linkID == 0 {
		return nil
	}
	return r.db.Model(&models.ReferralLink{}).Where("id = ?", linkID).
		Updates(map[string]interface{}{
			"click_count": gorm.Expr("click_count + 1"),
			"updated_at":  time.Now(),
		}).Error
}

// IncrementOrderStats 累加成交计数与成交金额
func (r *GormReferralRepository) IncrementOrderStats(linkID uint, amount decimal.Decimal) error {
	if linkID == 0 {
		return nil
	}
	return r.db.Model(&models.ReferralLink{}).Where("id = ?", linkID).
		Updates(map[string]interface{}{
			"order_count": gorm.Expr("order_count + 1"),
			"revenue":     gorm.Expr("revenue + ?", amount),
			"updated_at":  time.Now(),
		}).Error
}

// ListClicks 查询推荐点击记录列表
func (r *GormReferralRepository) ListClicks(filter ReferralClickListFilter) ([]models.ReferralClick, int64, error) {
	query := r.db.Model(&models.ReferralClick{})
	if filter.ReferralLinkID != 0 {
		query = query.Where("referral_link_id = ?", filter.ReferralLinkID)
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

	var rows []models.ReferralClick
	if err := query.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
