package models

import (
	"strings"
	"time"

	"github.com/dujiao-next/voucher-engine/internal/constants"
)

// Voucher 优惠码
type Voucher struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`                                                      // 主键（UUID）
	Code              string     `gorm:"size:16;not null;uniqueIndex:uk_voucher_scope_code,priority:2" json:"code"`         // 优惠码（大写）
	ShopID            *string    `gorm:"size:64;index" json:"shop_id"`                                                      // 店铺ID（为空表示平台通用）
	ScopeKey          string     `gorm:"size:64;not null;default:'';uniqueIndex:uk_voucher_scope_code,priority:1" json:"-"` // 唯一键作用域（由 shop_id 推导）
	DeletedToken      string     `gorm:"size:36;not null;default:'';uniqueIndex:uk_voucher_scope_code,priority:3" json:"-"` // 删除标记（未删除为空）
	Name              string     `gorm:"size:128;not null" json:"name"`                                                     // 名称
	Description       string     `gorm:"type:text" json:"description"`                                                      // 描述
	Type              string     `gorm:"size:16;not null" json:"type"`                                                      // 类型（PERCENTAGE/FIXED_AMOUNT/FREE_SHIP）
	Value             Money      `gorm:"type:decimal(20,2);not null" json:"value"`                                          // 数值（百分比或固定金额）
	MaxDiscount       *Money     `gorm:"type:decimal(20,2)" json:"max_discount"`                                            // 最大优惠金额
	MinOrderAmount    *Money     `gorm:"type:decimal(20,2)" json:"min_order_amount"`                                        // 使用门槛
	UsageLimit        int        `gorm:"not null" json:"usage_limit"`                                                       // 总使用上限
	UsageLimitPerUser int        `gorm:"not null" json:"usage_limit_per_user"`                                              // 每人使用上限
	CurrentUsage      int        `gorm:"not null;default:0" json:"current_usage"`                                           // 已使用次数（仅核销流程写入）
	ValidFrom         time.Time  `gorm:"not null;index" json:"valid_from"`                                                  // 生效时间
	ValidTo           time.Time  `gorm:"not null;index" json:"valid_to"`                                                    // 失效时间
	IsActive          bool       `gorm:"not null" json:"is_active"`                                                         // 是否启用（创建时显式写入）
	IsDeleted         bool       `gorm:"not null;default:false;index" json:"is_deleted"`                                    // 是否已删除
	DeletedAt         *time.Time `json:"deleted_at"`                                                                        // 删除时间
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`                                                           // 创建时间
	UpdatedAt         time.Time  `json:"updated_at"`                                                                        // 更新时间
}

// TableName 指定表名
func (Voucher) TableName() string {
	return "vouchers"
}

// OwnerType 归属类型
func (v *Voucher) OwnerType() string {
	if v.ShopID == nil {
		return constants.VoucherOwnerPlatform
	}
	return constants.VoucherOwnerShop
}

// RemainingUses 剩余总次数
func (v *Voucher) RemainingUses() int {
	if v.CurrentUsage >= v.UsageLimit {
		return 0
	}
	return v.UsageLimit - v.CurrentUsage
}

// NormalizeVoucherCode 规范化优惠码
func NormalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// VoucherScopeKey 由店铺ID推导唯一键作用域
func VoucherScopeKey(shopID *string) string {
	if shopID == nil {
		return ""
	}
	return strings.TrimSpace(*shopID)
}
