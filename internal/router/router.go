package router

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/voucher-engine/internal/cache"
	"github.com/dujiao-next/voucher-engine/internal/config"
	adminhandlers "github.com/dujiao-next/voucher-engine/internal/http/handlers/admin"
	publichandlers "github.com/dujiao-next/voucher-engine/internal/http/handlers/public"
	handlershared "github.com/dujiao-next/voucher-engine/internal/http/handlers/shared"
	"github.com/dujiao-next/voucher-engine/internal/logger"
	"github.com/dujiao-next/voucher-engine/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	handlershared.RegisterValidators()
	r := gin.New()

	// 初始化 Handler（按订单流程/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "vc"
	}
	redeemRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:redeem", redisPrefix),
		WindowSeconds: cfg.Security.RedeemRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RedeemRateLimit.MaxRequests,
		MessageKey:    "error.too_many_requests",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 订单流程接口
		vouchers := apiV1.Group("/vouchers")
		{
			vouchers.GET("/available", publicHandler.GetAvailableVouchers)
			vouchers.POST("/validate", publicHandler.ValidateVoucher)
			vouchers.POST("/:id/redeem", RateLimitMiddleware(cache.Client(), redeemRule, KeyByUserID("user_id")), publicHandler.RedeemVoucher)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 优惠码管理
			admin.POST("/vouchers", adminHandler.CreateVoucher)
			admin.GET("/vouchers", adminHandler.GetVouchers)
			admin.GET("/vouchers/:id", adminHandler.GetVoucher)
			admin.PUT("/vouchers/:id", adminHandler.UpdateVoucher)
			admin.DELETE("/vouchers/:id", adminHandler.DeleteVoucher)

			// 核销记录与对账
			admin.GET("/vouchers/:id/usages", adminHandler.GetVoucherUsages)
			admin.GET("/vouchers/:id/reconcile", adminHandler.ReconcileVoucher)
			admin.POST("/vouchers/reconcile", adminHandler.ReconcileAllVouchers)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
