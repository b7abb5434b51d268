package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dujiao-next/voucher-engine/internal/cache"
	"github.com/dujiao-next/voucher-engine/internal/constants"
	"github.com/dujiao-next/voucher-engine/internal/logger"
	"github.com/dujiao-next/voucher-engine/internal/models"
	"github.com/dujiao-next/voucher-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var voucherCodePattern = regexp.MustCompile(fmt.Sprintf("^[A-Z0-9]{%d,%d}$", constants.VoucherCodeMinLength, constants.VoucherCodeMaxLength))

// ValidVoucherCode 判断优惠码格式（规范化后 6-10 位大写字母或数字）
func ValidVoucherCode(code string) bool {
	return voucherCodePattern.MatchString(models.NormalizeVoucherCode(code))
}

// VoucherAdminService 优惠码管理服务
type VoucherAdminService struct {
	repo repository.VoucherRepository
	now  func() time.Time
}

// NewVoucherAdminService 创建优惠码管理服务
func NewVoucherAdminService(repo repository.VoucherRepository) *VoucherAdminService {
	return &VoucherAdminService{repo: repo, now: time.Now}
}

// CreateVoucherInput 创建优惠码输入
type CreateVoucherInput struct {
	Code              string
	ShopID            *string
	Name              string
	Description       string
	Type              string
	Value             models.Money
	MaxDiscount       *models.Money
	MinOrderAmount    *models.Money
	UsageLimit        int
	UsageLimitPerUser int
	ValidFrom         time.Time
	ValidTo           time.Time
	IsActive          *bool
}

// UpdateVoucherInput 更新优惠码输入（nil 表示不修改）
type UpdateVoucherInput struct {
	Code              *string
	ShopID            *string
	Type              *string
	Name              *string
	Description       *string
	Value             *models.Money
	MaxDiscount       *models.Money
	MinOrderAmount    *models.Money
	UsageLimit        *int
	UsageLimitPerUser *int
	ValidFrom         *time.Time
	ValidTo           *time.Time
	IsActive          *bool
}

// Create 创建优惠码
func (s *VoucherAdminService) Create(ctx context.Context, input CreateVoucherInput) (*models.Voucher, error) {
	code := models.NormalizeVoucherCode(input.Code)
	if !ValidVoucherCode(code) {
		return nil, ErrVoucherCodeInvalid
	}
	shopID := normalizeShopID(input.ShopID)
	if shopID != nil && exceedsIDLength(*shopID) {
		return nil, ErrVoucherInvalid
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrVoucherInvalid
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	voucher := &models.Voucher{
		ID:                uuid.NewString(),
		Code:              code,
		ShopID:            shopID,
		Name:              name,
		Description:       strings.TrimSpace(input.Description),
		Type:              strings.ToUpper(strings.TrimSpace(input.Type)),
		Value:             models.NewMoneyFromDecimal(input.Value.Decimal),
		MaxDiscount:       roundMoneyPtr(input.MaxDiscount),
		MinOrderAmount:    roundMoneyPtr(input.MinOrderAmount),
		UsageLimit:        input.UsageLimit,
		UsageLimitPerUser: input.UsageLimitPerUser,
		CurrentUsage:      0,
		ValidFrom:         input.ValidFrom,
		ValidTo:           input.ValidTo,
		IsActive:          isActive,
	}
	if err := validateVoucherRules(voucher); err != nil {
		return nil, err
	}

	repo := s.repo.WithContext(ctx)
	exist, err := repo.FindByScopeAndCode(shopID, code)
	if err != nil {
		return nil, fmt.Errorf("find voucher by code: %w", err)
	}
	if exist != nil {
		return nil, ErrVoucherCodeExists
	}
	if err := repo.Create(voucher); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrVoucherCodeExists
		}
		return nil, fmt.Errorf("create voucher: %w", err)
	}
	logger.Infow("voucher_created", "voucher_id", voucher.ID, "code", voucher.Code, "owner_type", voucher.OwnerType())
	return voucher, nil
}

// Update 更新优惠码，仅写入传入字段，code/shop_id/type 不可修改
func (s *VoucherAdminService) Update(ctx context.Context, id string, input UpdateVoucherInput) (*models.Voucher, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrVoucherNotFound
	}

	var updated *models.Voucher
	err := s.repo.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return fmt.Errorf("lock voucher: %w", err)
		}
		if existing == nil || existing.IsDeleted {
			return ErrVoucherNotFound
		}
		if err := checkImmutableFields(existing, input); err != nil {
			return err
		}

		merged := *existing
		fields := make(map[string]interface{})
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return ErrVoucherInvalid
			}
			merged.Name = name
			fields["name"] = name
		}
		if input.Description != nil {
			merged.Description = strings.TrimSpace(*input.Description)
			fields["description"] = merged.Description
		}
		if input.Value != nil {
			merged.Value = models.NewMoneyFromDecimal(input.Value.Decimal)
			fields["value"] = merged.Value
		}
		if input.MaxDiscount != nil {
			merged.MaxDiscount = roundMoneyPtr(input.MaxDiscount)
			fields["max_discount"] = *merged.MaxDiscount
		}
		if input.MinOrderAmount != nil {
			merged.MinOrderAmount = roundMoneyPtr(input.MinOrderAmount)
			fields["min_order_amount"] = *merged.MinOrderAmount
		}
		if input.UsageLimit != nil {
			merged.UsageLimit = *input.UsageLimit
			fields["usage_limit"] = merged.UsageLimit
		}
		if input.UsageLimitPerUser != nil {
			merged.UsageLimitPerUser = *input.UsageLimitPerUser
			fields["usage_limit_per_user"] = merged.UsageLimitPerUser
		}
		if input.ValidFrom != nil {
			merged.ValidFrom = *input.ValidFrom
			fields["valid_from"] = merged.ValidFrom
		}
		if input.ValidTo != nil {
			merged.ValidTo = *input.ValidTo
			fields["valid_to"] = merged.ValidTo
		}
		if input.IsActive != nil {
			merged.IsActive = *input.IsActive
			fields["is_active"] = merged.IsActive
		}

		if err := validateVoucherRules(&merged); err != nil {
			return err
		}
		if merged.UsageLimit < merged.CurrentUsage {
			return ErrVoucherLimitInvalid
		}
		if err := repo.Patch(id, fields); err != nil {
			return fmt.Errorf("patch voucher: %w", err)
		}
		reloaded, err := repo.GetByID(id)
		if err != nil {
			return fmt.Errorf("reload voucher: %w", err)
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := cache.InvalidateVoucher(ctx, updated); err != nil {
		logger.Warnw("voucher_cache_invalidate_failed", "voucher_id", id, "error", err)
	}
	logger.Infow("voucher_updated", "voucher_id", id)
	return updated, nil
}

// Delete 软删除优惠码，历史核销记录保留
func (s *VoucherAdminService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrVoucherNotFound
	}
	repo := s.repo.WithContext(ctx)
	existing, err := repo.GetByID(id)
	if err != nil {
		return fmt.Errorf("get voucher: %w", err)
	}
	if existing == nil || existing.IsDeleted {
		return ErrVoucherNotFound
	}
	deleted, err := repo.SoftDelete(id, s.now())
	if err != nil {
		return fmt.Errorf("soft delete voucher: %w", err)
	}
	if !deleted {
		return ErrVoucherNotFound
	}
	if err := cache.InvalidateVoucher(ctx, existing); err != nil {
		logger.Warnw("voucher_cache_invalidate_failed", "voucher_id", id, "error", err)
	}
	logger.Infow("voucher_deleted", "voucher_id", id, "code", existing.Code)
	return nil
}

// Get 获取未删除的优惠码
func (s *VoucherAdminService) Get(ctx context.Context, id string) (*models.Voucher, error) {
	voucher, err := s.repo.WithContext(ctx).GetByID(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if voucher == nil || voucher.IsDeleted {
		return nil, ErrVoucherNotFound
	}
	return voucher, nil
}

// List 获取优惠码列表
func (s *VoucherAdminService) List(ctx context.Context, filter repository.VoucherListFilter) ([]models.Voucher, int64, error) {
	if filter.Type != "" {
		filter.Type = strings.ToUpper(strings.TrimSpace(filter.Type))
		if !IsSupportedVoucherType(filter.Type) {
			return nil, 0, ErrVoucherTypeInvalid
		}
	}
	return s.repo.WithContext(ctx).List(filter)
}

func checkImmutableFields(existing *models.Voucher, input UpdateVoucherInput) error {
	if input.Code != nil && models.NormalizeVoucherCode(*input.Code) != existing.Code {
		return ErrVoucherImmutableField
	}
	if input.Type != nil && strings.ToUpper(strings.TrimSpace(*input.Type)) != existing.Type {
		return ErrVoucherImmutableField
	}
	if input.ShopID != nil && models.VoucherScopeKey(normalizeShopID(input.ShopID)) != models.VoucherScopeKey(existing.ShopID) {
		return ErrVoucherImmutableField
	}
	return nil
}

func validateVoucherRules(v *models.Voucher) error {
	if utf8.RuneCountInString(v.Name) > constants.VoucherNameMaxLength {
		return ErrVoucherInvalid
	}
	if !IsSupportedVoucherType(v.Type) {
		return ErrVoucherTypeInvalid
	}
	value := v.Value.Decimal
	if !value.IsPositive() {
		return ErrVoucherValueInvalid
	}
	switch v.Type {
	case constants.VoucherTypePercentage, constants.VoucherTypeFreeShip:
		if value.GreaterThan(hundred) {
			return ErrVoucherValueInvalid
		}
	}
	if v.Type == constants.VoucherTypePercentage {
		if v.MaxDiscount == nil || !v.MaxDiscount.Decimal.IsPositive() {
			return ErrVoucherMaxDiscountRequired
		}
	}
	if v.MaxDiscount != nil && !v.MaxDiscount.Decimal.IsPositive() {
		return ErrVoucherValueInvalid
	}
	if v.MinOrderAmount != nil && v.MinOrderAmount.Decimal.LessThan(decimal.Zero) {
		return ErrVoucherValueInvalid
	}
	if v.UsageLimit < 1 || v.UsageLimitPerUser < 1 {
		return ErrVoucherLimitInvalid
	}
	if v.ValidFrom.IsZero() || v.ValidTo.IsZero() || v.ValidTo.Before(v.ValidFrom) {
		return ErrVoucherWindowInvalid
	}
	return nil
}

func normalizeShopID(shopID *string) *string {
	if shopID == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*shopID)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func exceedsIDLength(id string) bool {
	return len(id) > constants.MaxExternalIDLength
}

func roundMoneyPtr(m *models.Money) *models.Money {
	if m == nil {
		return nil
	}
	return models.MoneyPtr(models.NewMoneyFromDecimal(m.Decimal))
}
