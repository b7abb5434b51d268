package shared

import (
	"github.com/dujiao-next/voucher-engine/internal/http/response"
	"github.com/dujiao-next/voucher-engine/internal/service"
)

// VoucherNotFoundRules 优惠码不存在
var VoucherNotFoundRules = []MappedError{
	{Target: service.ErrVoucherNotFound, Code: response.CodeNotFound, Key: "error.voucher_not_found"},
}

// VoucherValidationRules 优惠码参数校验错误
var VoucherValidationRules = []MappedError{
	{Target: service.ErrVoucherCodeInvalid, Code: response.CodeBadRequest, Key: "error.voucher_code_invalid"},
	{Target: service.ErrVoucherTypeInvalid, Code: response.CodeBadRequest, Key: "error.voucher_type_invalid"},
	{Target: service.ErrVoucherValueInvalid, Code: response.CodeBadRequest, Key: "error.voucher_value_invalid"},
	{Target: service.ErrVoucherMaxDiscountRequired, Code: response.CodeBadRequest, Key: "error.voucher_max_discount_required"},
	{Target: service.ErrVoucherLimitInvalid, Code: response.CodeBadRequest, Key: "error.voucher_limit_invalid"},
	{Target: service.ErrVoucherWindowInvalid, Code: response.CodeBadRequest, Key: "error.voucher_window_invalid"},
	{Target: service.ErrVoucherCodeExists, Code: response.CodeBadRequest, Key: "error.voucher_code_exists"},
	{Target: service.ErrVoucherRedeemInvalid, Code: response.CodeBadRequest, Key: "error.voucher_redeem_invalid"},
	{Target: service.ErrVoucherImmutableField, Code: response.CodeBadRequest, Key: "error.voucher_immutable_field"},
	{Target: service.ErrVoucherInvalid, Code: response.CodeBadRequest, Key: "error.voucher_invalid"},
}

// VoucherRedeemRules 核销额度与冲突错误
var VoucherRedeemRules = []MappedError{
	{Target: service.ErrVoucherTotalLimitReached, Code: response.CodeConflict, Key: "error.voucher_total_limit_reached"},
	{Target: service.ErrVoucherUserLimitReached, Code: response.CodeConflict, Key: "error.voucher_user_limit_reached"},
	{Target: service.ErrVoucherRedeemConflict, Code: response.CodeUnavailable, Key: "error.voucher_redeem_conflict"},
}

// VoucherErrorRules 优惠码全部业务错误映射
var VoucherErrorRules = ConcatMappedErrors(VoucherNotFoundRules, VoucherValidationRules, VoucherRedeemRules)
