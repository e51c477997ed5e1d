package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/botmall-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionSettingRepository 佣金比例配置数据访问接口
type CommissionSettingRepository interface {
	WithTx(tx *gorm.DB) CommissionSettingRepository

	Get(role, commissionType string) (*models.CommissionSetting, error)
	ListAll() ([]models.CommissionSetting, error)
	Upsert(setting *models.CommissionSetting) error
	Delete(role, commissionType string) error
}

// GormCommissionSettingRepository GORM 实现
type GormCommissionSettingRepository struct {
	db *gorm.DB
}

// NewCommissionSettingRepository 创建佣金配置仓库
func NewCommissionSettingRepository(db *gorm.DB) *GormCommissionSettingRepository {
	return &GormCommissionSettingRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionSettingRepository) WithTx(tx *gorm.DB) CommissionSettingRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionSettingRepository{db: tx}
}

// Get 按角色与佣金类型获取配置
func (r *GormCommissionSettingRepository) Get(role, commissionType string) (*models.CommissionSetting, error) {
	role = strings.TrimSpace(role)
	commissionType = strings.TrimSpace(commissionType)
	if role == "" || commissionType == "" {
		return nil, nil
	}
	var setting models.CommissionSetting
	err := r.db.Where("role = ? AND commission_type = ?", role, commissionType).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// ListAll 获取全部佣金配置
func (r *GormCommissionSettingRepository) ListAll() ([]models.CommissionSetting, error) {
	var settings []models.CommissionSetting
	if err := r.db.Order("role ASC, commission_type ASC").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// Upsert 写入或更新佣金配置
func (r *GormCommissionSettingRepository) Upsert(setting *models.CommissionSetting) error {
	if setting == nil {
		return nil
	}
	setting.Role = strings.TrimSpace(setting.Role)
	setting.CommissionType = strings.TrimSpace(setting.CommissionType)
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "role"}, {Name: "commission_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"percent":    setting.Percent,
			"updated_at": time.Now(),
		}),
	}).Create(setting).Error
}

// Delete 删除佣金配置
func (r *GormCommissionSettingRepository) Delete(role, commissionType string) error {
	role = strings.TrimSpace(role)
	commissionType = strings.TrimSpace(commissionType)
	if role == "" || commissionType == "" {
		return nil
	}
	return r.db.Where("role = ? AND commission_type = ?", role, commissionType).
		Delete(&models.CommissionSetting{}).Error
}
