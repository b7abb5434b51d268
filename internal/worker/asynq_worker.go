package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/dujiao-next/voucher-engine/internal/cache"
	"github.com/dujiao-next/voucher-engine/internal/logger"
	"github.com/dujiao-next/voucher-engine/internal/provider"
	"github.com/dujiao-next/voucher-engine/internal/queue"
	"github.com/dujiao-next/voucher-engine/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskVoucherRedeemed, c.handleVoucherRedeemed)
	mux.HandleFunc(queue.TaskVoucherReconcile, c.handleVoucherReconcile)
}

func (c *Consumer) handleVoucherRedeemed(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_voucher_redeemed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseVoucherRedeemedPayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_voucher_redeemed_unmarshal_failed", "error", err)
		return fmt.Errorf("parse voucher redeemed payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.VoucherID == "" {
		logger.Debugw("worker_voucher_redeemed_skip_invalid_payload", "usage_id", payload.UsageID)
		return nil
	}

	voucher, err := c.VoucherRepo.WithContext(ctx).GetByID(payload.VoucherID)
	if err != nil {
		logger.Warnw("worker_voucher_redeemed_fetch_failed", "voucher_id", payload.VoucherID, "error", err)
		return err
	}
	if voucher == nil {
		logger.Debugw("worker_voucher_redeemed_skip_not_found", "voucher_id", payload.VoucherID)
		return nil
	}
	if err := cache.InvalidateVoucher(ctx, voucher); err != nil {
		logger.Warnw("worker_voucher_cache_invalidate_failed", "voucher_id", voucher.ID, "error", err)
	}

	report, err := c.UsageService.ReconcileVoucher(ctx, voucher.ID)
	if err != nil {
		logger.Warnw("worker_voucher_redeemed_reconcile_failed", "voucher_id", voucher.ID, "error", err)
		return err
	}
	logger.Infow("worker_voucher_redeemed_processed",
		"voucher_id", voucher.ID,
		"usage_id", payload.UsageID,
		"order_id", payload.OrderID,
		"current_usage", report.CurrentUsage,
		"drift", report.Drift,
	)
	return nil
}

func (c *Consumer) handleVoucherReconcile(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_voucher_reconcile_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseVoucherReconcilePayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_voucher_reconcile_unmarshal_failed", "error", err)
		return fmt.Errorf("parse voucher reconcile payload: %v: %w", err, asynq.SkipRetry)
	}

	if payload.VoucherID == "" {
		if _, err := c.UsageService.ReconcileAll(ctx); err != nil {
			logger.Warnw("worker_voucher_reconcile_all_failed", "error", err)
			return err
		}
		return nil
	}

	if _, err := c.UsageService.ReconcileVoucher(ctx, payload.VoucherID); err != nil {
		if errors.Is(err, service.ErrVoucherNotFound) {
			logger.Debugw("worker_voucher_reconcile_skip_not_found", "voucher_id", payload.VoucherID)
			return nil
		}
		logger.Warnw("worker_voucher_reconcile_failed", "voucher_id", payload.VoucherID, "error", err)
		return err
	}
	return nil
}
