package service

import (
	"github.com/dujiao-next/voucher-engine/internal/constants"
	"github.com/dujiao-next/voucher-engine/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type discountFunc func(v *models.Voucher, subtotal, shipFee decimal.Decimal, freeShipMode string) decimal.Decimal

// 每种优惠码类型对应一个计算函数，新增类型必须在此登记
var discountFuncs = map[string]discountFunc{
	constants.VoucherTypePercentage:  percentageDiscount,
	constants.VoucherTypeFixedAmount: fixedAmountDiscount,
	constants.VoucherTypeFreeShip:    freeShipDiscount,
}

// IsSupportedVoucherType 判断类型是否受支持
func IsSupportedVoucherType(voucherType string) bool {
	_, ok := discountFuncs[voucherType]
	return ok
}

// DiscountCalculator 折扣计算器（纯计算，无 I/O）
type DiscountCalculator struct {
	freeShipMode string
}

// NewDiscountCalculator 创建折扣计算器
func NewDiscountCalculator(freeShipMode string) *DiscountCalculator {
	if freeShipMode != constants.FreeShipModeFull {
		freeShipMode = constants.FreeShipModePercent
	}
	return &DiscountCalculator{freeShipMode: freeShipMode}
}

// FreeShipMode 当前免运费计算方式
func (c *DiscountCalculator) FreeShipMode() string {
	return c.freeShipMode
}

// Compute 计算优惠金额，结果保留 2 位小数且不为负
func (c *DiscountCalculator) Compute(v *models.Voucher, subtotal, shipFee models.Money) models.Money {
	if v == nil {
		return models.Money{}
	}
	fn, ok := discountFuncs[v.Type]
	if !ok {
		return models.Money{}
	}
	amount := fn(v, subtotal.NonNegative().Decimal, shipFee.NonNegative().Decimal, c.freeShipMode)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return models.NewMoneyFromDecimal(amount)
}

func percentageDiscount(v *models.Voucher, subtotal, _ decimal.Decimal, _ string) decimal.Decimal {
	amount := subtotal.Mul(v.Value.Decimal).Div(hundred)
	if v.MaxDiscount != nil {
		amount = decimal.Min(amount, v.MaxDiscount.Decimal)
	}
	return decimal.Min(amount, subtotal)
}

func fixedAmountDiscount(v *models.Voucher, subtotal, _ decimal.Decimal, _ string) decimal.Decimal {
	return decimal.Min(v.Value.Decimal, subtotal)
}

func freeShipDiscount(v *models.Voucher, _, shipFee decimal.Decimal, mode string) decimal.Decimal {
	ceiling := shipFee
	if v.MaxDiscount != nil {
		ceiling = v.MaxDiscount.Decimal
	}
	if mode == constants.FreeShipModeFull {
		return decimal.Min(shipFee, ceiling)
	}
	return decimal.Min(shipFee.Mul(v.Value.Decimal).Div(hundred), ceiling)
}
