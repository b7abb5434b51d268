package models

import "time"

// VoucherUsage 优惠码核销记录（主键为幂等键）
type VoucherUsage struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`                                               // 幂等键
	VoucherID      string    `gorm:"size:36;not null;index:idx_voucher_usage_user,priority:1" json:"voucher_id"` // 优惠码ID
	UserID         string    `gorm:"size:64;not null;index:idx_voucher_usage_user,priority:2" json:"user_id"`    // 用户ID
	OrderID        string    `gorm:"size:64;not null;index" json:"order_id"`                                     // 订单ID
	DiscountAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`               // 优惠金额
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                                    // 创建时间
}

// TableName 指定表名
func (VoucherUsage) TableName() string {
	return "voucher_usages"
}
