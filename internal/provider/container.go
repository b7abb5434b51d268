package provider

import (
	"context"
	"time"

	"github.com/dujiao-next/voucher-engine/internal/cache"
	"github.com/dujiao-next/voucher-engine/internal/config"
	"github.com/dujiao-next/voucher-engine/internal/logger"
	"github.com/dujiao-next/voucher-engine/internal/models"
	"github.com/dujiao-next/voucher-engine/internal/queue"
	"github.com/dujiao-next/voucher-engine/internal/repository"
	"github.com/dujiao-next/voucher-engine/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	VoucherRepo      repository.VoucherRepository
	VoucherUsageRepo repository.VoucherUsageRepository

	// Services
	DiscountCalculator  *service.DiscountCalculator
	VoucherService      *service.VoucherService
	VoucherAdminService *service.VoucherAdminService
	RedemptionService   *service.RedemptionService
	UsageService        *service.UsageService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	} else if cache.Enabled() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := cache.Ping(pingCtx); err != nil {
			logger.Warnw("provider_ping_redis_failed", "error", err)
		}
		cancel()
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient = nil
	}

	return Build(cfg, models.DB, queueClient)
}

// Build 基于已初始化的数据库与队列客户端组装容器
func Build(cfg *config.Config, db *gorm.DB, queueClient *queue.Client) *Container {
	cfg.Voucher = cfg.Voucher.Normalize()
	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	c.initServices()

	return c
}

// Close 释放队列与缓存连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.VoucherRepo = repository.NewVoucherRepository(db)
	c.VoucherUsageRepo = repository.NewVoucherUsageRepository(db)
}

func (c *Container) initServices() {
	voucherCfg := c.Config.Voucher

	c.DiscountCalculator = service.NewDiscountCalculator(voucherCfg.FreeShipMode)
	c.UsageService = service.NewUsageService(c.VoucherRepo, c.VoucherUsageRepo, voucherCfg.UsageBatchSize)
	c.VoucherService = service.NewVoucherService(
		c.VoucherRepo,
		c.UsageService,
		c.DiscountCalculator,
		time.Duration(voucherCfg.CodeCacheTTLSeconds)*time.Second,
	)
	c.VoucherAdminService = service.NewVoucherAdminService(c.VoucherRepo)
	c.RedemptionService = service.NewRedemptionService(c.VoucherRepo, c.VoucherUsageRepo, c.QueueClient, service.RedeemOptions{
		MaxAttempts:    voucherCfg.RedeemMaxAttempts,
		RetryDelay:     time.Duration(voucherCfg.RedeemRetryDelayMS) * time.Millisecond,
		AttemptTimeout: time.Duration(voucherCfg.RedeemAttemptTimeoutMS) * time.Millisecond,
	})
}
