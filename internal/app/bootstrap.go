package app

import (
	"errors"

	"github.com/dujiao-next/voucher-engine/internal/cache"
	"github.com/dujiao-next/voucher-engine/internal/config"
	"github.com/dujiao-next/voucher-engine/internal/logger"
	"github.com/dujiao-next/voucher-engine/internal/provider"
	"github.com/dujiao-next/voucher-engine/internal/router"
	"github.com/dujiao-next/voucher-engine/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)
	runner, err := buildServices(cfg, mode, container)
	if err != nil {
		container.Close()
		return nil, err
	}
	runner.container = container
	return runner, nil
}

func buildServices(cfg *config.Config, mode string, container *provider.Container) (*Runner, error) {
	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		httpService := NewHTTPService(addr, engine)
		services = append(services, httpService)
	}

	// 初始化 Worker 服务（all 模式下未启用队列时跳过）
	if mode == ModeWorker || (mode == ModeAll && cfg.Queue.Enabled) {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	} else if mode == ModeAll {
		logger.Infow("app_worker_skipped_queue_disabled")
	}

	// 初始化定时对账
	if mode == ModeAll || mode == ModeWorker {
		scheduler, err := worker.NewReconcileScheduler(cfg.Voucher, container.UsageService, cache.Client())
		if err != nil {
			return nil, err
		}
		services = append(services, scheduler)
	}

	// 如果没有服务被启动（例如模式错误或配置导致都没起），应该报错或至少打日志
	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
