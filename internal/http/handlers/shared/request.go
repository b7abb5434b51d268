package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderUserID 调用方透传的用户标识请求头
const HeaderUserID = "X-User-ID"

// ParseTimeNullable 解析 RFC3339 时间，空串返回 nil。
func ParseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// ResolveUserID 优先使用显式传入的用户ID，否则读取请求头。
func ResolveUserID(c *gin.Context, explicit string) string {
	if userID := strings.TrimSpace(explicit); userID != "" {
		return userID
	}
	return strings.TrimSpace(c.GetHeader(HeaderUserID))
}

// OptionalString 空白字符串返回 nil。
func OptionalString(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// QueryBool 解析可选布尔查询参数，缺省或非法时返回 nil。
func QueryBool(c *gin.Context, key string) *bool {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

// QueryPagination 读取并归一化分页查询参数。
func QueryPagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return NormalizePagination(page, pageSize)
}
