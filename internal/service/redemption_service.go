package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/voucher-engine/internal/cache"
	"github.com/dujiao-next/voucher-engine/internal/logger"
	"github.com/dujiao-next/voucher-engine/internal/models"
	"github.com/dujiao-next/voucher-engine/internal/queue"
	"github.com/dujiao-next/voucher-engine/internal/repository"

	"github.com/avast/retry-go"
	"gorm.io/gorm"
)

// RedeemOptions 核销冲突重试参数
type RedeemOptions struct {
	MaxAttempts    int
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
}

func (o RedeemOptions) normalize() RedeemOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 4
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 3 * time.Second
	}
	return o
}

// RedemptionService 优惠码核销服务（唯一允许修改已使用次数与核销记录的入口）
type RedemptionService struct {
	voucherRepo repository.VoucherRepository
	usageRepo   repository.VoucherUsageRepository
	queueClient *queue.Client
	options     RedeemOptions
}

// NewRedemptionService 创建核销服务
func NewRedemptionService(voucherRepo repository.VoucherRepository, usageRepo repository.VoucherUsageRepository, queueClient *queue.Client, options RedeemOptions) *RedemptionService {
	return &RedemptionService{
		voucherRepo: voucherRepo,
		usageRepo:   usageRepo,
		queueClient: queueClient,
		options:     options.normalize(),
	}
}

// RedeemVoucherInput 核销输入
type RedeemVoucherInput struct {
	VoucherID      string
	UserID         string
	OrderID        string
	DiscountAmount models.Money
}

// RedeemVoucherResult 核销结果
type RedeemVoucherResult struct {
	Voucher  *models.Voucher
	UsageID  string
	Replayed bool // 同一订单重复提交，未产生新的核销
}

// Apply 核销优惠码并返回最新状态
func (s *RedemptionService) Apply(ctx context.Context, voucherID, userID, orderID string, discountAmount models.Money) (*models.Voucher, error) {
	result, err := s.RedeemVoucher(ctx, RedeemVoucherInput{
		VoucherID:      voucherID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: discountAmount,
	})
	if err != nil {
		return nil, err
	}
	return result.Voucher, nil
}

// RedeemVoucher 在单个事务内完成幂等检查、额度校验与计数写入，冲突时有限次重试
func (s *RedemptionService) RedeemVoucher(ctx context.Context, input RedeemVoucherInput) (*RedeemVoucherResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	input.VoucherID = strings.TrimSpace(input.VoucherID)
	input.UserID = strings.TrimSpace(input.UserID)
	input.OrderID = strings.TrimSpace(input.OrderID)
	if input.VoucherID == "" || input.UserID == "" || input.OrderID == "" {
		return nil, ErrVoucherRedeemInvalid
	}
	if exceedsIDLength(input.VoucherID) || exceedsIDLength(input.UserID) || exceedsIDLength(input.OrderID) {
		return nil, ErrVoucherRedeemInvalid
	}
	if input.DiscountAmount.Decimal.IsNegative() {
		return nil, ErrVoucherRedeemInvalid
	}
	input.DiscountAmount = models.NewMoneyFromDecimal(input.DiscountAmount.Decimal)

	usageID := UsageLedgerID(input.VoucherID, input.UserID, input.OrderID)
	log := logger.FromContext(ctx).With("voucher_id", input.VoucherID, "user_id", input.UserID, "order_id", input.OrderID)

	var result *RedeemVoucherResult
	err := retry.Do(
		func() error {
			res, err := s.applyOnce(ctx, input, usageID)
			if err != nil {
				return err
			}
			result = res
			return nil
		},
		retry.Attempts(uint(s.options.MaxAttempts)),
		retry.Delay(s.options.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return isRetryableRedeemError(ctx, err)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warnw("voucher_redeem_retry", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		if isRetryableRedeemError(ctx, err) {
			log.Errorw("voucher_redeem_conflict_exhausted", "attempts", s.options.MaxAttempts, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrVoucherRedeemConflict, err)
		}
		return nil, err
	}

	if result.Replayed {
		log.Infow("voucher_redeem_replayed", "usage_id", usageID)
		return result, nil
	}
	log.Infow("voucher_redeemed",
		"usage_id", usageID,
		"current_usage", result.Voucher.CurrentUsage,
		"usage_limit", result.Voucher.UsageLimit,
		"discount_amount", input.DiscountAmount.String(),
	)
	s.afterRedeem(ctx, result, input)
	return result, nil
}

func (s *RedemptionService) applyOnce(ctx context.Context, input RedeemVoucherInput, usageID string) (*RedeemVoucherResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.options.AttemptTimeout)
	defer cancel()

	var result *RedeemVoucherResult
	err := s.voucherRepo.WithContext(attemptCtx).Transaction(func(tx *gorm.DB) error {
		voucherRepo := s.voucherRepo.WithTx(tx)
		usageRepo := s.usageRepo.WithTx(tx)

		voucher, err := voucherRepo.GetByIDForUpdate(input.VoucherID)
		if err != nil {
			return fmt.Errorf("lock voucher: %w", err)
		}
		if voucher == nil || voucher.IsDeleted {
			return ErrVoucherNotFound
		}

		existing, err := usageRepo.GetByID(usageID)
		if err != nil {
			return fmt.Errorf("read usage record: %w", err)
		}
		if existing != nil {
			result = &RedeemVoucherResult{Voucher: voucher, UsageID: usageID, Replayed: true}
			return nil
		}

		newUsage := voucher.CurrentUsage + 1
		if newUsage > voucher.UsageLimit {
			return ErrVoucherTotalLimitReached
		}

		counter, err := usageRepo.LockUserUsage(voucher.ID, input.UserID)
		if err != nil {
			return fmt.Errorf("lock user usage: %w", err)
		}
		if counter.UsedCount >= voucher.UsageLimitPerUser {
			return ErrVoucherUserLimitReached
		}

		if err := usageRepo.Create(&models.VoucherUsage{
			ID:             usageID,
			VoucherID:      voucher.ID,
			UserID:         input.UserID,
			OrderID:        input.OrderID,
			DiscountAmount: input.DiscountAmount,
		}); err != nil {
			return fmt.Errorf("create usage record: %w", err)
		}
		if err := usageRepo.CompareAndSetUserUsage(voucher.ID, input.UserID, counter.UsedCount, counter.UsedCount+1); err != nil {
			return fmt.Errorf("increment user usage: %w", err)
		}
		if err := voucherRepo.CompareAndSetUsage(voucher.ID, voucher.CurrentUsage, newUsage); err != nil {
			return fmt.Errorf("increment voucher usage: %w", err)
		}

		voucher.CurrentUsage = newUsage
		result = &RedeemVoucherResult{Voucher: voucher, UsageID: usageID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RedemptionService) afterRedeem(ctx context.Context, result *RedeemVoucherResult, input RedeemVoucherInput) {
	voucher := result.Voucher
	if err := cache.InvalidateVoucher(ctx, voucher); err != nil {
		logger.Warnw("voucher_cache_invalidate_failed", "voucher_id", voucher.ID, "error", err)
	}
	if err := s.queueClient.EnqueueVoucherRedeemed(queue.VoucherRedeemedPayload{
		UsageID:   result.UsageID,
		VoucherID: voucher.ID,
		UserID:    input.UserID,
		OrderID:   input.OrderID,
		Code:      voucher.Code,
		ShopID:    voucher.ShopID,
	}); err != nil {
		logger.Warnw("voucher_redeemed_enqueue_failed", "voucher_id", voucher.ID, "usage_id", result.UsageID, "error", err)
	}
}

// 单次尝试超时同样视为可重试冲突，调用方上下文结束则不再重试
func isRetryableRedeemError(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if repository.IsConflictError(err) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
