package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dujiao-next/voucher-engine/internal/config"
	"github.com/dujiao-next/voucher-engine/internal/constants"
	"github.com/dujiao-next/voucher-engine/internal/logger"
	"github.com/dujiao-next/voucher-engine/internal/models"
	"github.com/dujiao-next/voucher-engine/internal/repository"
	"github.com/dujiao-next/voucher-engine/internal/service"
)

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
	}, cfg.Server.Mode == "debug"); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	adminService := service.NewVoucherAdminService(repository.NewVoucherRepository(models.DB))
	now := time.Now()
	shopID := "shop-demo"

	vouchers := []service.CreateVoucherInput{
		{
			Code:              "FREESHIP50",
			Name:              "Free shipping 50% off",
			Description:       "Half of the shipping fee, platform wide",
			Type:              constants.VoucherTypeFreeShip,
			Value:             models.NewMoneyFromInt(50),
			UsageLimit:        1000,
			UsageLimitPerUser: 1,
			ValidFrom:         now.Add(-time.Hour),
			ValidTo:           now.AddDate(0, 1, 0),
		},
		{
			Code:              "PCT020",
			Name:              "20% off, capped",
			Type:              constants.VoucherTypePercentage,
			Value:             models.NewMoneyFromInt(20),
			MaxDiscount:       models.MoneyPtr(models.NewMoneyFromInt(20000)),
			MinOrderAmount:    models.MoneyPtr(models.NewMoneyFromInt(50000)),
			UsageLimit:        500,
			UsageLimitPerUser: 2,
			ValidFrom:         now.Add(-time.Hour),
			ValidTo:           now.AddDate(0, 1, 0),
		},
		{
			Code:              "SHOP10K",
			ShopID:            &shopID,
			Name:              "Shop 10000 off",
			Type:              constants.VoucherTypeFixedAmount,
			Value:             models.NewMoneyFromInt(10000),
			MinOrderAmount:    models.MoneyPtr(models.NewMoneyFromInt(100000)),
			UsageLimit:        100,
			UsageLimitPerUser: 1,
			ValidFrom:         now.Add(-time.Hour),
			ValidTo:           now.AddDate(0, 0, 14),
		},
		{
			Code:              "ONCEONLY",
			Name:              "Single use",
			Type:              constants.VoucherTypeFixedAmount,
			Value:             models.NewMoneyFromInt(5000),
			UsageLimit:        1,
			UsageLimitPerUser: 1,
			ValidFrom:         now.Add(-time.Hour),
			ValidTo:           now.AddDate(0, 0, 7),
		},
	}

	created := 0
	for _, input := range vouchers {
		voucher, err := adminService.Create(context.Background(), input)
		switch {
		case errors.Is(err, service.ErrVoucherCodeExists):
			stdLog.Printf("Voucher already exists: %s", input.Code)
		case err != nil:
			stdLog.Printf("Failed to create voucher %s: %v", input.Code, err)
		default:
			created++
			stdLog.Printf("Created voucher: %s (%s)", voucher.Code, voucher.ID)
		}
	}

	fmt.Println("\n✅ Test data created successfully!")
	fmt.Println("Summary:")
	fmt.Printf("- %d vouchers created, %d total in seed set\n", created, len(vouchers))
	fmt.Println("- FREESHIP50 / PCT020 / ONCEONLY (platform), SHOP10K (shop-demo)")
}
