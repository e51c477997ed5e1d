package provider

import (
	"github.com/botmall-next/internal/authz"
	"github.com/botmall-next/internal/cache"
	"github.com/botmall-next/internal/config"
	"github.com/botmall-next/internal/logger"
	"github.com/botmall-next/internal/models"
	"github.com/botmall-next/internal/queue"
	"github.com/botmall-next/internal/repository"
	"github.com/botmall-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo             repository.AdminRepository
	UserRepo              repository.UserRepository
	OrderRepo             repository.OrderRepository
	ReferralRepo          repository.ReferralRepository
	CommissionRepo        repository.CommissionRepository
	CommissionSettingRepo repository.CommissionSettingRepository
	WithdrawalRepo        repository.WithdrawalRepository

	// Services
	AuthzService      *authz.Service
	AuthService       *service.AuthService
	UserAuthService   *service.UserAuthService
	UserService       *service.UserService
	ReferralService   *service.ReferralService
	CommissionService *service.CommissionService
	WithdrawalService *service.WithdrawalService
	OrderService      *service.OrderService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.CommissionSettingRepo = repository.NewCommissionSettingRepository(db)
	c.WithdrawalRepo = repository.NewWithdrawalRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.ReferralService = service.NewReferralService(c.ReferralRepo, c.UserRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo, c.ReferralService)
	c.UserService = service.NewUserService(c.UserRepo, c.ReferralService, c.Config)
	c.CommissionService = service.NewCommissionService(
		c.CommissionRepo,
		c.CommissionSettingRepo,
		c.UserRepo,
		c.OrderRepo,
		c.ReferralRepo,
		c.Config,
	)
	c.WithdrawalService = service.NewWithdrawalService(c.WithdrawalRepo, c.UserRepo)

	var enqueuer service.CommissionSettleEnqueuer
	if c.QueueClient != nil && c.QueueClient.Enabled() {
		enqueuer = c.QueueClient
	}
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.UserRepo,
		c.ReferralService,
		c.CommissionService,
		enqueuer,
	)
}

// Close 释放容器资源
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
}
