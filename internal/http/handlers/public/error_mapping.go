package public

import (
	handlershared "github.com/dujiao-next/voucher-engine/internal/http/handlers/shared"
	"github.com/dujiao-next/voucher-engine/internal/http/response"

	"github.com/gin-gonic/gin"
)

var voucherValidateErrorRules = handlershared.ConcatMappedErrors(
	handlershared.VoucherValidationRules,
)

var voucherRedeemErrorRules = handlershared.ConcatMappedErrors(
	handlershared.VoucherNotFoundRules,
	handlershared.VoucherRedeemRules,
	handlershared.VoucherValidationRules,
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondBindError(c *gin.Context, err error) {
	handlershared.RespondError(c, response.CodeBadRequest, handlershared.BindErrorKey(err), err)
}

func respondVoucherValidateError(c *gin.Context, err error) {
	handlershared.RespondMappedError(c, err, voucherValidateErrorRules, response.CodeInternal, "error.voucher_validate_failed")
}

func respondVoucherRedeemError(c *gin.Context, err error) {
	handlershared.RespondMappedError(c, err, voucherRedeemErrorRules, response.CodeInternal, "error.voucher_redeem_failed")
}
