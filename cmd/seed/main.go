package main

import (
	"github.com/botmall-next/internal/config"
	"github.com/botmall-next/internal/constants"
	"github.com/botmall-next/internal/logger"
	"github.com/botmall-next/internal/models"

	"github.com/shopspring/decimal"
)

type settingSeed struct {
	Role           string
	CommissionType string
	Percent        float64
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认管理员
	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	// 各角色默认佣金比例
	seeds := []settingSeed{
		{constants.UserRoleCTV, constants.CommissionTypeRetail, 10},
		{constants.UserRoleCTV, constants.CommissionTypeOverride, 3},
		{constants.UserRoleAgent, constants.CommissionTypeRetail, 12},
		{constants.UserRoleAgent, constants.CommissionTypeOverride, 5},
		{constants.UserRoleMasterAgent, constants.CommissionTypeRetail, 15},
		{constants.UserRoleMasterAgent, constants.CommissionTypeOverride, 7},
		{constants.UserRoleDistributor, constants.CommissionTypeRetail, 20},
		{constants.UserRoleDistributor, constants.CommissionTypeOverride, 10},
	}

	for _, seed := range seeds {
		var existing models.CommissionSetting
		err := models.DB.
			Where("role = ? AND commission_type = ?", seed.Role, seed.CommissionType).
			First(&existing).Error
		if err == nil {
			stdLog.Printf("Commission setting already exists: %s/%s", seed.Role, seed.CommissionType)
			continue
		}
		setting := models.CommissionSetting{
			Role:           seed.Role,
			CommissionType: seed.CommissionType,
			Percent:        models.NewMoneyFromDecimal(decimal.NewFromFloat(seed.Percent)),
		}
		if err := models.DB.Create(&setting).Error; err != nil {
			stdLog.Printf("Failed to create commission setting %s/%s: %v", seed.Role, seed.CommissionType, err)
			continue
		}
		stdLog.Printf("Created commission setting: %s/%s = %.2f%%", seed.Role, seed.CommissionType, seed.Percent)
	}

	stdLog.Printf("Seed finished")
}
