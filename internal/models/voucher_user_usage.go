package models

import "time"

// VoucherUserUsage 用户维度的优惠码使用计数
type VoucherUserUsage struct {
	VoucherID string    `gorm:"primaryKey;size:36" json:"voucher_id"` // 优惠码ID
	UserID    string    `gorm:"primaryKey;size:64" json:"user_id"`    // 用户ID
	UsedCount int       `gorm:"not null;default:0" json:"used_count"` // 已使用次数
	UpdatedAt time.Time `json:"updated_at"`                           // 更新时间
}

// TableName 指定表名
func (VoucherUserUsage) TableName() string {
	return "voucher_user_usages"
}
