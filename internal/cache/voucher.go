package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dujiao-next/voucher-engine/internal/models"
)

// VoucherCodeKey 优惠码查询缓存键
func VoucherCodeKey(shopID *string, code string) string {
	scope := models.VoucherScopeKey(shopID)
	if scope == "" {
		scope = "_"
	}
	return fmt.Sprintf("voucher:code:%s:%s", scope, models.NormalizeVoucherCode(code))
}

// GetVoucherByCode 读取优惠码缓存
func GetVoucherByCode(ctx context.Context, shopID *string, code string) (*models.Voucher, bool, error) {
	var voucher models.Voucher
	hit, err := GetJSON(ctx, VoucherCodeKey(shopID, code), &voucher)
	if err != nil || !hit {
		return nil, false, err
	}
	return &voucher, true, nil
}

// SetVoucherByCode 写入优惠码缓存
func SetVoucherByCode(ctx context.Context, voucher *models.Voucher, ttl time.Duration) error {
	if voucher == nil {
		return nil
	}
	return SetJSON(ctx, VoucherCodeKey(voucher.ShopID, voucher.Code), voucher, ttl)
}

// InvalidateVoucher 删除优惠码缓存
func InvalidateVoucher(ctx context.Context, voucher *models.Voucher) error {
	if voucher == nil {
		return nil
	}
	return Del(ctx, VoucherCodeKey(voucher.ShopID, voucher.Code))
}
