package constants

// 优惠码类型常量
const (
	VoucherTypePercentage  = "PERCENTAGE"
	VoucherTypeFixedAmount = "FIXED_AMOUNT"
	VoucherTypeFreeShip    = "FREE_SHIP"
)

// 优惠码归属常量（由 shop_id 推导，不落库）
const (
	VoucherOwnerPlatform = "platform"
	VoucherOwnerShop     = "shop"
)

// 免运费折扣计算方式
const (
	FreeShipModePercent = "percent"
	FreeShipModeFull    = "full"
)

// 优惠码校验失败原因（预览接口返回，不作为错误）
const (
	VoucherReasonNotFound       = "not_found"
	VoucherReasonInactive       = "inactive"
	VoucherReasonNotStarted     = "not_started"
	VoucherReasonExpired        = "expired"
	VoucherReasonMinOrderAmount = "min_order_amount"
	VoucherReasonUsageLimit     = "usage_limit_reached"
	VoucherReasonUserLimit      = "user_limit_reached"
)

// 优惠码编码约束
const (
	VoucherCodeMinLength = 6
	VoucherCodeMaxLength = 10
)

// 字段长度上限，与表结构 size 一致
const (
	MaxExternalIDLength  = 64
	VoucherNameMaxLength = 128
)

// 队列常量
const (
	QueueDefault = "default"
)

// 异步任务类型
const (
	TaskVoucherRedeemed  = "voucher:redeemed"
	TaskVoucherReconcile = "voucher:reconcile"
)
