package service

import "errors"

// 优惠码查询错误
var (
	ErrVoucherNotFound = errors.New("voucher not found")
)

// 优惠码校验错误（参数或状态非法，调用方可修正后重试）
var (
	ErrVoucherInvalid             = errors.New("voucher invalid")
	ErrVoucherCodeInvalid         = errors.New("voucher code invalid")
	ErrVoucherTypeInvalid         = errors.New("voucher type invalid")
	ErrVoucherValueInvalid        = errors.New("voucher value invalid")
	ErrVoucherMaxDiscountRequired = errors.New("voucher max discount required")
	ErrVoucherLimitInvalid        = errors.New("voucher usage limit invalid")
	ErrVoucherWindowInvalid       = errors.New("voucher validity window invalid")
	ErrVoucherCodeExists          = errors.New("voucher code already exists")
	ErrVoucherRedeemInvalid       = errors.New("voucher redeem request invalid")
	ErrVoucherImmutableField      = errors.New("voucher field is immutable")
)

// 优惠码核销错误
var (
	ErrVoucherTotalLimitReached = errors.New("voucher total usage limit reached")
	ErrVoucherUserLimitReached  = errors.New("voucher per-user usage limit reached")
	ErrVoucherRedeemConflict    = errors.New("voucher redeem conflict, retry later")
)

// IsVoucherValidationError 判断是否为校验类错误
func IsVoucherValidationError(err error) bool {
	for _, target := range voucherValidationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var voucherValidationErrors = []error{
	ErrVoucherInvalid,
	ErrVoucherCodeInvalid,
	ErrVoucherTypeInvalid,
	ErrVoucherValueInvalid,
	ErrVoucherMaxDiscountRequired,
	ErrVoucherLimitInvalid,
	ErrVoucherWindowInvalid,
	ErrVoucherCodeExists,
	ErrVoucherRedeemInvalid,
	ErrVoucherImmutableField,
}
