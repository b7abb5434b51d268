package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dujiao-next/voucher-engine/internal/constants"
	"github.com/dujiao-next/voucher-engine/internal/models"
	"github.com/dujiao-next/voucher-engine/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type voucherTestEnv struct {
	db          *gorm.DB
	voucherRepo *repository.GormVoucherRepository
	usageRepo   *repository.GormVoucherUsageRepository
	admin       *VoucherAdminService
	vouchers    *VoucherService
	redemption  *RedemptionService
	usage       *UsageService
}

func setupVoucherServiceTest(t *testing.T) *voucherTestEnv {
	t.Helper()
	return setupVoucherServiceTestWithConns(t, 1, 4)
}

// setupVoucherServiceTestWithConns 多连接时并发事务会真实交错，冲突交由核销重试处理
func setupVoucherServiceTestWithConns(t *testing.T, maxOpenConns, maxAttempts int) *voucherTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:voucher_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := models.Migrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	voucherRepo := repository.NewVoucherRepository(db)
	usageRepo := repository.NewVoucherUsageRepository(db)
	usage := NewUsageService(voucherRepo, usageRepo, 2)
	return &voucherTestEnv{
		db:          db,
		voucherRepo: voucherRepo,
		usageRepo:   usageRepo,
		admin:       NewVoucherAdminService(voucherRepo),
		vouchers:    NewVoucherService(voucherRepo, usage, NewDiscountCalculator(constants.FreeShipModePercent), 0),
		redemption: NewRedemptionService(voucherRepo, usageRepo, nil, RedeemOptions{
			MaxAttempts:    maxAttempts,
			RetryDelay:     time.Millisecond,
			AttemptTimeout: 10 * time.Second,
		}),
		usage: usage,
	}
}

func (env *voucherTestEnv) createVoucher(t *testing.T, input CreateVoucherInput) *models.Voucher {
	t.Helper()
	now := time.Now()
	if input.Name == "" {
		input.Name = input.Code
	}
	if input.Type == "" {
		input.Type = constants.VoucherTypeFixedAmount
	}
	if input.Value.Decimal.IsZero() {
		input.Value = models.NewMoneyFromInt(100)
	}
	if input.UsageLimit == 0 {
		input.UsageLimit = 100
	}
	if input.UsageLimitPerUser == 0 {
		input.UsageLimitPerUser = 1
	}
	if input.ValidFrom.IsZero() {
		input.ValidFrom = now.Add(-time.Hour)
	}
	if input.ValidTo.IsZero() {
		input.ValidTo = now.Add(24 * time.Hour)
	}
	voucher, err := env.admin.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create voucher %s failed: %v", input.Code, err)
	}
	return voucher
}

func (env *voucherTestEnv) reload(t *testing.T, id string) *models.Voucher {
	t.Helper()
	voucher, err := env.voucherRepo.GetByID(id)
	if err != nil || voucher == nil {
		t.Fatalf("reload voucher failed: v=%v err=%v", voucher, err)
	}
	return voucher
}

func moneyOf(t *testing.T, raw string) models.Money {
	t.Helper()
	m, err := models.ParseMoney(raw)
	if err != nil {
		t.Fatalf("parse money failed: %v", err)
	}
	return m
}
