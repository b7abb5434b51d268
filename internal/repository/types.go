package repository

import "time"

// VoucherListFilter 查询优惠码列表的过滤条件
type VoucherListFilter struct {
	Page           int
	PageSize       int
	ShopID         string
	PlatformOnly   bool
	IsActive       *bool
	Code           string
	Type           string
	IncludeDeleted bool
}

// VoucherUsageListFilter 查询核销记录列表的过滤条件
type VoucherUsageListFilter struct {
	Page        int
	PageSize    int
	VoucherID   string
	UserID      string
	OrderID     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
