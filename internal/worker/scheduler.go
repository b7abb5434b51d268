package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dujiao-next/voucher-engine/internal/cache"
	"github.com/dujiao-next/voucher-engine/internal/config"
	"github.com/dujiao-next/voucher-engine/internal/logger"
	"github.com/dujiao-next/voucher-engine/internal/service"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

const reconcileLockKey = "lock:voucher:reconcile"

// ReconcileScheduler 定时用量对账服务，多实例部署时由 Redis 锁保证同一时刻只有一个实例执行
type ReconcileScheduler struct {
	name    string
	spec    string
	lockTTL time.Duration
	usage   *service.UsageService
	locker  *redislock.Client
	cron    *cron.Cron

	mu      sync.Mutex
	baseCtx context.Context
	stopped bool
	running sync.WaitGroup
}

// NewReconcileScheduler 创建对账调度器，redisClient 为空时不加锁
func NewReconcileScheduler(cfg config.VoucherConfig, usage *service.UsageService, redisClient *redis.Client) (*ReconcileScheduler, error) {
	if usage == nil {
		return nil, errors.New("usage service is nil")
	}
	cfg = cfg.Normalize()
	s := &ReconcileScheduler{
		name:    "reconcile-scheduler",
		spec:    cfg.ReconcileCron,
		lockTTL: time.Duration(cfg.ReconcileLockTTLSeconds) * time.Second,
		usage:   usage,
		cron:    cron.New(),
		baseCtx: context.Background(),
	}
	if redisClient != nil {
		s.locker = redislock.New(redisClient)
	}
	if err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return nil, fmt.Errorf("parse reconcile cron %q: %w", s.spec, err)
	}
	return s, nil
}

// Name 服务名称
func (s *ReconcileScheduler) Name() string {
	if s == nil || s.name == "" {
		return "reconcile-scheduler"
	}
	return s.name
}

// Start 启动定时任务并阻塞到上下文结束
func (s *ReconcileScheduler) Start(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return errors.New("reconcile scheduler not initialized")
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.baseCtx = ctx
	s.cron.Start()
	s.mu.Unlock()

	logger.Infow("reconcile_scheduler_started", "spec", s.spec, "locked", s.locker != nil)
	<-ctx.Done()
	return nil
}

// Stop 停止定时任务，并在 ctx 截止前等待执行中的对账结束
func (s *ReconcileScheduler) Stop(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return nil
	}
	s.mu.Lock()
	s.stopped = true
	s.cron.Stop()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		logger.Warnw("reconcile_scheduler_stop_timeout", "error", ctx.Err())
		return ctx.Err()
	}
}

func (s *ReconcileScheduler) tick() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	ctx := s.baseCtx
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	if ctx.Err() != nil {
		return
	}
	if _, _, err := s.RunOnce(ctx); err != nil {
		logger.Warnw("reconcile_scheduler_run_failed", "error", err)
	}
}

// RunOnce 执行一次全量对账，未获取到锁时返回 ran=false
func (s *ReconcileScheduler) RunOnce(ctx context.Context) (*service.ReconcileSummary, bool, error) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, cache.Key(reconcileLockKey), s.lockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			logger.Debugw("reconcile_scheduler_skip_locked")
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("obtain reconcile lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				logger.Warnw("reconcile_scheduler_release_failed", "error", err)
			}
		}()
	}

	summary, err := s.usage.ReconcileAll(ctx)
	if err != nil {
		return summary, true, err
	}
	return summary, true, nil
}
