package public

import (
	handlershared "github.com/dujiao-next/voucher-engine/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context, explicit string) string {
	return handlershared.ResolveUserID(c, explicit)
}
