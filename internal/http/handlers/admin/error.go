package admin

import (
	handlershared "github.com/dujiao-next/voucher-engine/internal/http/handlers/shared"
	"github.com/dujiao-next/voucher-engine/internal/http/response"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondBindError(c *gin.Context, err error) {
	handlershared.RespondError(c, response.CodeBadRequest, handlershared.BindErrorKey(err), err)
}

func respondVoucherError(c *gin.Context, err error, fallbackKey string) {
	handlershared.RespondMappedError(c, err, handlershared.VoucherErrorRules, response.CodeInternal, fallbackKey)
}
