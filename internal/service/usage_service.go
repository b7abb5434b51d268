package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dujiao-next/voucher-engine/internal/logger"
	"github.com/dujiao-next/voucher-engine/internal/models"
	"github.com/dujiao-next/voucher-engine/internal/repository"
)

const (
	defaultUsageBatchSize = 30
	reconcilePageSize     = 100
)

// UsageService 优惠码用量统计服务（只读，不作为限额校验依据）
type UsageService struct {
	voucherRepo repository.VoucherRepository
	usageRepo   repository.VoucherUsageRepository
	batchSize   int
}

// NewUsageService 创建用量统计服务
func NewUsageService(voucherRepo repository.VoucherRepository, usageRepo repository.VoucherUsageRepository, batchSize int) *UsageService {
	if batchSize <= 0 {
		batchSize = defaultUsageBatchSize
	}
	return &UsageService{
		voucherRepo: voucherRepo,
		usageRepo:   usageRepo,
		batchSize:   batchSize,
	}
}

// CountUsage 统计优惠码总核销次数
func (s *UsageService) CountUsage(ctx context.Context, voucherID string) (int64, error) {
	count, err := s.usageRepo.WithContext(ctx).CountByVoucher(strings.TrimSpace(voucherID))
	if err != nil {
		return 0, fmt.Errorf("count voucher usage: %w", err)
	}
	return count, nil
}

// CountUsageByUser 统计用户在某优惠码上的核销次数
func (s *UsageService) CountUsageByUser(ctx context.Context, voucherID, userID string) (int64, error) {
	count, err := s.usageRepo.WithContext(ctx).CountByUser(strings.TrimSpace(voucherID), strings.TrimSpace(userID))
	if err != nil {
		return 0, fmt.Errorf("count voucher usage by user: %w", err)
	}
	return count, nil
}

// CountUsageByUserBatch 按批次统计用户在多个优惠码上的核销次数，未命中的ID默认为 0
func (s *UsageService) CountUsageByUserBatch(ctx context.Context, voucherIDs []string, userID string) (map[string]int64, error) {
	ids := uniqueNonBlank(voucherIDs)
	counts := make(map[string]int64, len(ids))
	for _, id := range ids {
		counts[id] = 0
	}
	userID = strings.TrimSpace(userID)
	if userID == "" || len(ids) == 0 {
		return counts, nil
	}

	repo := s.usageRepo.WithContext(ctx)
	for start := 0; start < len(ids); start += s.batchSize {
		end := start + s.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		partial, err := repo.CountByUserForVouchers(ids[start:end], userID)
		if err != nil {
			return nil, fmt.Errorf("count voucher usage batch: %w", err)
		}
		for id, count := range partial {
			counts[id] = count
		}
	}
	return counts, nil
}

// ListUsages 分页查询核销记录
func (s *UsageService) ListUsages(ctx context.Context, filter repository.VoucherUsageListFilter) ([]models.VoucherUsage, int64, error) {
	filter.VoucherID = strings.TrimSpace(filter.VoucherID)
	filter.UserID = strings.TrimSpace(filter.UserID)
	filter.OrderID = strings.TrimSpace(filter.OrderID)
	usages, total, err := s.usageRepo.WithContext(ctx).List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list voucher usages: %w", err)
	}
	return usages, total, nil
}

// ReconcileReport 单个优惠码的用量对账结果
type ReconcileReport struct {
	VoucherID      string `json:"voucher_id"`
	Code           string `json:"code"`
	CurrentUsage   int    `json:"current_usage"`
	LedgerCount    int64  `json:"ledger_count"`
	UserCounterSum int64  `json:"user_counter_sum"`
	Drift          bool   `json:"drift"`
}

// ReconcileSummary 全量对账汇总
type ReconcileSummary struct {
	Checked int               `json:"checked"`
	Drifted []ReconcileReport `json:"drifted"`
}

// ReconcileVoucher 比对已使用次数与核销记录，只报告不修正
func (s *UsageService) ReconcileVoucher(ctx context.Context, voucherID string) (*ReconcileReport, error) {
	voucher, err := s.voucherRepo.WithContext(ctx).GetByID(strings.TrimSpace(voucherID))
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if voucher == nil {
		return nil, ErrVoucherNotFound
	}

	repo := s.usageRepo.WithContext(ctx)
	ledger, err := repo.CountByVoucher(voucher.ID)
	if err != nil {
		return nil, fmt.Errorf("count voucher usage: %w", err)
	}
	counterSum, err := repo.SumUserUsage(voucher.ID)
	if err != nil {
		return nil, fmt.Errorf("sum user usage: %w", err)
	}

	report := &ReconcileReport{
		VoucherID:      voucher.ID,
		Code:           voucher.Code,
		CurrentUsage:   voucher.CurrentUsage,
		LedgerCount:    ledger,
		UserCounterSum: counterSum,
	}
	report.Drift = int64(voucher.CurrentUsage) != ledger || counterSum != ledger
	if report.Drift {
		logger.Warnw("voucher_usage_drift",
			"voucher_id", voucher.ID,
			"code", voucher.Code,
			"current_usage", voucher.CurrentUsage,
			"ledger_count", ledger,
			"user_counter_sum", counterSum,
		)
	}
	return report, nil
}

// ReconcileAll 按游标遍历所有未删除优惠码执行对账
func (s *UsageService) ReconcileAll(ctx context.Context) (*ReconcileSummary, error) {
	summary := &ReconcileSummary{Drifted: []ReconcileReport{}}
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		ids, err := s.voucherRepo.WithContext(ctx).ListLiveIDs(cursor, reconcilePageSize)
		if err != nil {
			return summary, fmt.Errorf("list voucher ids: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			report, err := s.ReconcileVoucher(ctx, id)
			if err != nil {
				return summary, err
			}
			summary.Checked++
			if report.Drift {
				summary.Drifted = append(summary.Drifted, *report)
			}
		}
		cursor = ids[len(ids)-1]
		if len(ids) < reconcilePageSize {
			break
		}
	}
	logger.Infow("voucher_reconcile_finished", "checked", summary.Checked, "drifted", len(summary.Drifted))
	return summary, nil
}

func uniqueNonBlank(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
