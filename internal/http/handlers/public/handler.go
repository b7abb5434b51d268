package public

import "github.com/dujiao-next/voucher-engine/internal/provider"

// Handler 订单流程侧接口处理器入口
// 说明：该处理器供下单、结算与用户优惠码列表调用。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
