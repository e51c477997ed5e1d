package router

import (
	"fmt"
	"strings"

	"github.com/botmall-next/internal/cache"
	"github.com/botmall-next/internal/config"
	adminhandlers "github.com/botmall-next/internal/http/handlers/admin"
	publichandlers "github.com/botmall-next/internal/http/handlers/public"
	"github.com/botmall-next/internal/logger"
	"github.com/botmall-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "bm"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "登录尝试过于频繁",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "登录尝试过于频繁",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.Register)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.Login)
		}

		// 推荐归因接口（无需鉴权）
		referral := apiV1.Group("/referral")
		{
			referral.POST("/clicks", publicHandler.TrackReferralClick)
			referral.GET("/resolve/:code", publicHandler.ResolveReferralCode)
		}

		// 支付回调（订单确认入口）
		apiV1.POST("/payments/callback", publicHandler.PaymentCallback)

		// 用户接口（需鉴权）
		user := apiV1.Group("/user")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/profile", publicHandler.Profile)
			user.GET("/referral/link", publicHandler.GetMyReferralLink)
			user.POST("/referral/link", publicHandler.CreateMyReferralLink)
			user.GET("/commissions", publicHandler.ListMyCommissions)
			user.GET("/commissions/summary", publicHandler.GetMyCommissionSummary)
			user.POST("/withdrawals", publicHandler.ApplyWithdrawal)
			user.GET("/withdrawals", publicHandler.ListMyWithdrawals)
			user.GET("/withdrawals/:id", publicHandler.GetMyWithdrawal)
			user.POST("/orders", publicHandler.CreateOrder)
			user.GET("/orders", publicHandler.ListMyOrders)
			user.GET("/orders/:id", publicHandler.GetMyOrder)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/auth/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.Login)

			// 需要鉴权的接口
			authorized := admin.Use(AdminJWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/profile", adminHandler.Profile)

				// 佣金管理
				authorized.GET("/commissions", adminHandler.ListCommissions)
				authorized.POST("/commissions/mark-paid", adminHandler.MarkCommissionsPaid)
				authorized.POST("/commissions/recompute", adminHandler.RecomputeCommissions)
				authorized.GET("/commissions/ranking", adminHandler.CommissionRanking)
				authorized.GET("/commission-settings", adminHandler.ListCommissionSettings)
				authorized.POST("/commission-settings", adminHandler.UpsertCommissionSetting)
				authorized.DELETE("/commission-settings", adminHandler.DeleteCommissionSetting)

				// 提现管理
				authorized.GET("/withdrawals", adminHandler.ListWithdrawals)
				authorized.POST("/withdrawals/:id/process", adminHandler.ProcessWithdrawal)

				// 推荐链接管理
				authorized.GET("/referral-links", adminHandler.ListReferralLinks)
				authorized.PUT("/referral-links/:id/status", adminHandler.SetReferralLinkStatus)
				authorized.POST("/referral-links/sync", adminHandler.SyncReferralLinks)
				authorized.GET("/referral-clicks", adminHandler.ListReferralClicks)

				// 订单管理
				authorized.GET("/orders", adminHandler.ListOrders)
				authorized.POST("/orders/:id/confirm", adminHandler.ConfirmOrder)
				authorized.POST("/orders/:id/cancel", adminHandler.CancelOrder)

				// 用户管理
				authorized.GET("/users", adminHandler.ListUsers)
				authorized.GET("/users/:id", adminHandler.GetUser)
				authorized.PUT("/users/:id/role", adminHandler.SetUserRole)
				authorized.PUT("/users/:id/parent", adminHandler.SetUserParent)
				authorized.PUT("/users/:id/status", adminHandler.SetUserStatus)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
