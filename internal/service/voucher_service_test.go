package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dujiao-next/voucher-engine/internal/constants"
	"github.com/dujiao-next/voucher-engine/internal/models"
)

func TestValidateVoucherReasons(t *testing.T) {
	env := setupVoucherServiceTest(t)
	ctx := context.Background()
	now := time.Now()
	minOrder := models.NewMoneyFromInt(1000)
	inactive := false

	env.createVoucher(t, CreateVoucherInput{Code: "OFF001", IsActive: &inactive})
	env.createVoucher(t, CreateVoucherInput{Code: "LATER1", ValidFrom: now.Add(time.Hour), ValidTo: now.Add(2 * time.Hour)})
	env.createVoucher(t, CreateVoucherInput{Code: "OLD001", ValidFrom: now.Add(-2 * time.Hour), ValidTo: now.Add(-time.Hour)})
	env.createVoucher(t, CreateVoucherInput{Code: "MIN001", MinOrderAmount: &minOrder})
	full := env.createVoucher(t, CreateVoucherInput{Code: "FULL01", UsageLimit: 1, UsageLimitPerUser: 1})
	if _, err := env.redemption.Apply(ctx, full.ID, "u1", "o1", models.NewMoneyFromInt(1)); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	mine := env.createVoucher(t, CreateVoucherInput{Code: "MINE01", UsageLimit: 5, UsageLimitPerUser: 1})
	if _, err := env.redemption.Apply(ctx, mine.ID, "u1", "o1", models.NewMoneyFromInt(1)); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	cases := []struct {
		code   string
		userID string
		reason string
	}{
		{"NOPE01", "", constants.VoucherReasonNotFound},
		{"X", "", constants.VoucherReasonNotFound},
		{"OFF001", "", constants.VoucherReasonInactive},
		{"LATER1", "", constants.VoucherReasonNotStarted},
		{"OLD001", "", constants.VoucherReasonExpired},
		{"MIN001", "", constants.VoucherReasonMinOrderAmount},
		{"FULL01", "", constants.VoucherReasonUsageLimit},
		{"MINE01", "u1", constants.VoucherReasonUserLimit},
	}
	for _, tc := range cases {
		result, err := env.vouchers.ValidateVoucher(ctx, ValidateVoucherInput{
			Code:     tc.code,
			UserID:   tc.userID,
			Subtotal: models.NewMoneyFromInt(500),
		})
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.code, err)
		}
		if result.Valid || result.Reason != tc.reason {
			t.Fatalf("%s: want reason %s got valid=%v reason=%s", tc.code, tc.reason, result.Valid, result.Reason)
		}
	}

	if _, err := env.vouchers.ValidateVoucher(ctx, ValidateVoucherInput{Code: "  "}); !errors.Is(err, ErrVoucherCodeInvalid) {
		t.Fatalf("blank code want invalid, got %v", err)
	}

	ok, err := env.vouchers.ValidateVoucher(ctx, ValidateVoucherInput{Code: "MINE01", UserID: "u2", Subtotal: models.NewMoneyFromInt(500)})
	if err != nil || !ok.Valid || ok.DiscountAmount.String() != "100.00" {
		t.Fatalf("u2 should be able to use MINE01: %+v err=%v", ok, err)
	}
}

func TestValidateVoucherShopScopeFallsBackToPlatform(t *testing.T) {
	env := setupVoucherServiceTest(t)
	ctx := context.Background()
	shop := "shop-1"
	maxDiscount := models.NewMoneyFromInt(20000)
	env.createVoucher(t, CreateVoucherInput{
		Code:        "PCT020",
		Type:        constants.VoucherTypePercentage,
		Value:       models.NewMoneyFromInt(20),
		MaxDiscount: &maxDiscount,
	})
	env.createVoucher(t, CreateVoucherInput{Code: "SHOP01", ShopID: &shop})

	result, err := env.vouchers.ValidateVoucher(ctx, ValidateVoucherInput{
		Code:     "pct020",
		ShopID:   &shop,
		Subtotal: models.NewMoneyFromInt(150000),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !result.Valid || result.DiscountAmount.String() != "20000.00" {
		t.Fatalf("want platform voucher with 20000 discount, got %+v", result)
	}

	other := "shop-2"
	result, err = env.vouchers.ValidateVoucher(ctx, ValidateVoucherInput{Code: "SHOP01", ShopID: &other, Subtotal: models.NewMoneyFromInt(100)})
	if err != nil || result.Reason != constants.VoucherReasonNotFound {
		t.Fatalf("shop voucher must not leak to other shops: %+v err=%v", result, err)
	}
}

func TestListAvailableVouchers(t *testing.T) {
	env := setupVoucherServiceTest(t)
	ctx := context.Background()
	shop := "shop-1"
	other := "shop-2"
	inactive := false

	mine := env.createVoucher(t, CreateVoucherInput{Code: "AVAIL1", ShopID: &shop, UsageLimitPerUser: 2})
	platform := env.createVoucher(t, CreateVoucherInput{Code: "AVAIL2", UsageLimitPerUser: 1})
	env.createVoucher(t, CreateVoucherInput{Code: "AVAIL3", ShopID: &other})
	env.createVoucher(t, CreateVoucherInput{Code: "AVAIL4", ShopID: &shop, IsActive: &inactive})
	gone := env.createVoucher(t, CreateVoucherInput{Code: "AVAIL5", ShopID: &shop})
	if err := env.admin.Delete(ctx, gone.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := env.redemption.Apply(ctx, mine.ID, "u1", "o1", models.NewMoneyFromInt(1)); err != nil {
		t.Fatalf("redeem mine failed: %v", err)
	}
	if _, err := env.redemption.Apply(ctx, platform.ID, "u1", "o2", models.NewMoneyFromInt(1)); err != nil {
		t.Fatalf("redeem platform failed: %v", err)
	}

	list, err := env.vouchers.ListAvailableVouchers(ctx, &shop, "u1")
	if err != nil {
		t.Fatalf("list available failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("want 2 available vouchers got %d", len(list))
	}
	byCode := map[string]AvailableVoucher{}
	for _, item := range list {
		byCode[item.Voucher.Code] = item
	}
	if got := byCode["AVAIL1"]; got.MyUsageCount != 1 || got.MyRemainingUses != 1 {
		t.Fatalf("unexpected AVAIL1 usage: %+v", got)
	}
	if got := byCode["AVAIL2"]; got.MyUsageCount != 1 || got.MyRemainingUses != 0 {
		t.Fatalf("unexpected AVAIL2 usage: %+v", got)
	}

	anonymous, err := env.vouchers.ListAvailableVouchers(ctx, nil, "")
	if err != nil {
		t.Fatalf("list platform failed: %v", err)
	}
	if len(anonymous) != 1 || anonymous[0].Voucher.Code != "AVAIL2" || anonymous[0].MyRemainingUses != 1 {
		t.Fatalf("platform listing unexpected: %+v", anonymous)
	}
}
