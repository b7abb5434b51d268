package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/voucher-engine/internal/cache"
	"github.com/dujiao-next/voucher-engine/internal/constants"
	"github.com/dujiao-next/voucher-engine/internal/logger"
	"github.com/dujiao-next/voucher-engine/internal/models"
	"github.com/dujiao-next/voucher-engine/internal/repository"
)

// VoucherService 优惠码查询与预校验服务
type VoucherService struct {
	repo       repository.VoucherRepository
	usage      *UsageService
	calculator *DiscountCalculator
	cacheTTL   time.Duration
	now        func() time.Time
}

// NewVoucherService 创建优惠码服务
func NewVoucherService(repo repository.VoucherRepository, usage *UsageService, calculator *DiscountCalculator, cacheTTL time.Duration) *VoucherService {
	if calculator == nil {
		calculator = NewDiscountCalculator(constants.FreeShipModePercent)
	}
	return &VoucherService{
		repo:       repo,
		usage:      usage,
		calculator: calculator,
		cacheTTL:   cacheTTL,
		now:        time.Now,
	}
}

// ValidateVoucherInput 预校验输入
type ValidateVoucherInput struct {
	Code     string
	ShopID   *string
	UserID   string
	Subtotal models.Money
	ShipFee  models.Money
}

// ValidateVoucherResult 预校验结果，规则不满足时 Valid=false 并给出原因
type ValidateVoucherResult struct {
	Valid          bool            `json:"valid"`
	DiscountAmount models.Money    `json:"discount_amount"`
	Reason         string          `json:"reason,omitempty"`
	Voucher        *models.Voucher `json:"voucher,omitempty"`
}

// AvailableVoucher 用户可用优惠码
type AvailableVoucher struct {
	Voucher         models.Voucher `json:"voucher"`
	MyUsageCount    int64          `json:"my_usage_count"`
	MyRemainingUses int64          `json:"my_remaining_uses"`
}

// FindByCode 按作用域查找优惠码，店铺范围未命中时回退到平台通用码
func (s *VoucherService) FindByCode(ctx context.Context, shopID *string, code string) (*models.Voucher, error) {
	code = models.NormalizeVoucherCode(code)
	shopID = normalizeShopID(shopID)

	scopes := []*string{shopID}
	if shopID != nil {
		scopes = append(scopes, nil)
	}
	for _, scope := range scopes {
		voucher, err := s.lookupScope(ctx, scope, code)
		if err != nil {
			return nil, err
		}
		if voucher != nil {
			return voucher, nil
		}
	}
	return nil, nil
}

func (s *VoucherService) lookupScope(ctx context.Context, shopID *string, code string) (*models.Voucher, error) {
	if cached, hit, err := cache.GetVoucherByCode(ctx, shopID, code); err != nil {
		logger.Warnw("voucher_cache_get_failed", "code", code, "error", err)
	} else if hit {
		return cached, nil
	}

	voucher, err := s.repo.WithContext(ctx).FindByScopeAndCode(shopID, code)
	if err != nil {
		return nil, fmt.Errorf("find voucher by code: %w", err)
	}
	if voucher == nil {
		return nil, nil
	}
	if err := cache.SetVoucherByCode(ctx, voucher, s.cacheTTL); err != nil {
		logger.Warnw("voucher_cache_set_failed", "code", code, "error", err)
	}
	return voucher, nil
}

// ValidateVoucher 校验优惠码对订单是否可用并预估优惠金额（只读）
func (s *VoucherService) ValidateVoucher(ctx context.Context, input ValidateVoucherInput) (*ValidateVoucherResult, error) {
	code := models.NormalizeVoucherCode(input.Code)
	if code == "" {
		return nil, ErrVoucherCodeInvalid
	}
	if !ValidVoucherCode(code) {
		return &ValidateVoucherResult{Reason: constants.VoucherReasonNotFound}, nil
	}

	voucher, err := s.FindByCode(ctx, input.ShopID, code)
	if err != nil {
		return nil, err
	}
	if voucher == nil {
		return &ValidateVoucherResult{Reason: constants.VoucherReasonNotFound}, nil
	}

	result := &ValidateVoucherResult{Voucher: voucher}
	if reason := s.checkPreconditions(voucher, input.Subtotal); reason != "" {
		result.Reason = reason
		return result, nil
	}

	if userID := strings.TrimSpace(input.UserID); userID != "" && s.usage != nil {
		used, err := s.usage.CountUsageByUser(ctx, voucher.ID, userID)
		if err != nil {
			return nil, err
		}
		if used >= int64(voucher.UsageLimitPerUser) {
			result.Reason = constants.VoucherReasonUserLimit
			return result, nil
		}
	}

	result.Valid = true
	result.DiscountAmount = s.calculator.Compute(voucher, input.Subtotal, input.ShipFee)
	return result, nil
}

func (s *VoucherService) checkPreconditions(voucher *models.Voucher, subtotal models.Money) string {
	now := s.now()
	switch {
	case !voucher.IsActive || voucher.IsDeleted:
		return constants.VoucherReasonInactive
	case now.Before(voucher.ValidFrom):
		return constants.VoucherReasonNotStarted
	case now.After(voucher.ValidTo):
		return constants.VoucherReasonExpired
	case voucher.CurrentUsage >= voucher.UsageLimit:
		return constants.VoucherReasonUsageLimit
	case voucher.MinOrderAmount != nil && subtotal.Decimal.LessThan(voucher.MinOrderAmount.Decimal):
		return constants.VoucherReasonMinOrderAmount
	}
	return ""
}

// ListAvailableVouchers 列出店铺可用（含平台通用）优惠码及当前用户用量
func (s *VoucherService) ListAvailableVouchers(ctx context.Context, shopID *string, userID string) ([]AvailableVoucher, error) {
	vouchers, err := s.repo.WithContext(ctx).ListAvailable(normalizeShopID(shopID), s.now())
	if err != nil {
		return nil, fmt.Errorf("list available vouchers: %w", err)
	}
	ids := make([]string, 0, len(vouchers))
	for _, v := range vouchers {
		ids = append(ids, v.ID)
	}

	counts := map[string]int64{}
	if strings.TrimSpace(userID) != "" && s.usage != nil {
		counts, err = s.usage.CountUsageByUserBatch(ctx, ids, userID)
		if err != nil {
			return nil, err
		}
	}

	result := make([]AvailableVoucher, 0, len(vouchers))
	for _, v := range vouchers {
		used := counts[v.ID]
		remaining := int64(v.UsageLimitPerUser) - used
		if remaining < 0 {
			remaining = 0
		}
		result = append(result, AvailableVoucher{
			Voucher:         v,
			MyUsageCount:    used,
			MyRemainingUses: remaining,
		})
	}
	return result, nil
}
